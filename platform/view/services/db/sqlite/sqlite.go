/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/hyperledger-labs/fsc-obligations/pkg/utils/errors"
	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/logging"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/db/driver"
	"modernc.org/sqlite"
)

const sqlitePragmas = `
	PRAGMA journal_mode = WAL;
	PRAGMA busy_timeout = 5000;
	PRAGMA synchronous = NORMAL;
	PRAGMA cache_size = 1000000000;
	PRAGMA temp_store = memory;`

const driverName = "sqlite"

var logger = logging.MustGetLogger("view-sdk.db.sqlite")

// OpenDB opens the database at opts.DataSource twice: a pool for reads and a single connection for writes
func OpenDB(opts driver.Opts) (*driver.RWDB, error) {
	readDB, err := sql.Open(driverName, opts.DataSource)
	if err != nil {
		logger.Error(err)
		if strings.Contains(err.Error(), "out of memory (14)") {
			return nil, fmt.Errorf("can't open %s database, does the folder exist?: %w", driverName, err)
		}
		return nil, fmt.Errorf("can't open %s database: %w", driverName, err)
	}
	if opts.MaxOpenConns > 0 {
		readDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		readDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.MaxIdleTime > 0 {
		readDB.SetConnMaxIdleTime(opts.MaxIdleTime)
	}
	if err = readDB.Ping(); err != nil {
		return nil, err
	}
	logger.Infof("connected to [%s] for reads, max open connections: %d", driverName, opts.MaxOpenConns)

	// sqlite can handle concurrent reads in WAL mode if the writes are throttled in 1 connection
	writeDB, err := sql.Open(driverName, opts.DataSource)
	if err != nil {
		logger.Error(err)
		return nil, fmt.Errorf("can't open sql database: %w", err)
	}
	writeDB.SetMaxOpenConns(1)
	if err = writeDB.Ping(); err != nil {
		return nil, err
	}
	if opts.SkipPragmas {
		if !strings.Contains(opts.DataSource, "WAL") {
			logger.Warn("skipping default pragmas. Set at least ?_pragma=journal_mode(WAL) or similar in the dataSource to prevent SQLITE_BUSY errors")
		}
	} else {
		logger.Debug(sqlitePragmas)
		if _, err = readDB.Exec(sqlitePragmas); err != nil {
			return nil, fmt.Errorf("error setting pragmas: %w", err)
		}
		if _, err = writeDB.Exec(sqlitePragmas); err != nil {
			return nil, fmt.Errorf("error setting pragmas: %w", err)
		}
	}
	logger.Infof("connected to [%s] for writes, max open connections: 1", driverName)

	return &driver.RWDB{ReadDB: readDB, WriteDB: writeDB, ErrorMapper: &ErrorMapper{}}, nil
}

type ErrorMapper struct{}

func (m *ErrorMapper) WrapError(err error) error {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	switch sqliteErr.Code() {
	case 1555, 2067:
		return errors.Wrapf(driver.UniqueKeyViolation, "%s", err)
	default:
		logger.Warnf("Unmapped sqlite error with code [%d]", sqliteErr.Code())
	}
	return err
}
