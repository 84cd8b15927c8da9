/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package postgres

import (
	"database/sql"
	"fmt"

	"github.com/hyperledger-labs/fsc-obligations/pkg/utils/errors"
	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/logging"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/db/driver"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

var logger = logging.MustGetLogger("view-sdk.db.postgres")

const (
	// PgxDriverName selects the pgx database/sql driver
	PgxDriverName = "pgx"
	// PqDriverName selects the lib/pq database/sql driver
	PqDriverName = "postgres"
)

// OpenDB opens a postgres pool through pgx. The same handle serves reads and writes.
func OpenDB(opts driver.Opts) (*driver.RWDB, error) {
	return OpenDBWithDriver(PgxDriverName, opts)
}

// OpenDBWithDriver opens a postgres pool through the passed database/sql driver
func OpenDBWithDriver(driverName string, opts driver.Opts) (*driver.RWDB, error) {
	db, err := sql.Open(driverName, opts.DataSource)
	if err != nil {
		logger.Error(err)
		return nil, fmt.Errorf("can't open %s database: %w", driverName, err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.MaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.MaxIdleTime)
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	logger.Infof("connected to [%s] for reads, max open connections: %d", driverName, opts.MaxOpenConns)
	logger.Info("using same db for writes")

	return &driver.RWDB{ReadDB: db, WriteDB: db, ErrorMapper: &ErrorMapper{}}, nil
}

type ErrorMapper struct{}

func (m *ErrorMapper) WrapError(err error) error {
	var code string
	var pgErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgErr):
		code = pgErr.Code
	case errors.As(err, &pqErr):
		code = string(pqErr.Code)
	default:
		logger.Warnf("Error of type [%T] not a postgres error", err)
		return err
	}

	switch code {
	case "23505":
		return errors.Wrapf(driver.UniqueKeyViolation, "%s", err)
	case "40P01":
		return errors.Wrapf(driver.DeadlockDetected, "%s", err)
	default:
		logger.Warnf("Unmapped postgres error with code [%s]", code)
		return err
	}
}
