/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	errors2 "github.com/hyperledger-labs/fsc-obligations/pkg/utils/errors"
	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/logging"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/driver"
	dbdriver "github.com/hyperledger-labs/fsc-obligations/platform/view/services/db/driver"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

var (
	logger    = logging.MustGetLogger("obligations.journal")
	validName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// Journal is an append-only record of the finalized transactions seen by the local node
type Journal struct {
	db    *dbdriver.RWDB
	table string
	now   func() time.Time
}

func New(db *dbdriver.RWDB, table string) (*Journal, error) {
	if !validName.MatchString(table) {
		return nil, errors.Errorf("invalid table name [%s]", table)
	}
	return &Journal{db: db, table: table, now: time.Now}, nil
}

// CreateSchema creates the journal table if it does not exist
func (j *Journal) CreateSchema() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			tx_id TEXT NOT NULL PRIMARY KEY,
			action TEXT NOT NULL,
			payload TEXT NOT NULL,
			recorded_at BIGINT NOT NULL
		);`, j.table)
	if logger.IsEnabledFor(zapcore.DebugLevel) {
		logger.Debug(query)
	}
	if _, err := j.db.WriteDB.Exec(query); err != nil {
		return errors.Wrapf(err, "failed creating table [%s]", j.table)
	}
	return nil
}

// Append records tx. Recording the same transaction twice is a no-op.
func (j *Journal) Append(ctx context.Context, tx *driver.FinalizedTransaction) error {
	if tx == nil || len(tx.ID) == 0 {
		return errors.New("invalid finalized transaction")
	}
	payload, err := json.Marshal(tx)
	if err != nil {
		return errors.Wrapf(err, "failed marshalling [%s]", tx.ID)
	}
	query := fmt.Sprintf("INSERT INTO %s (tx_id, action, payload, recorded_at) VALUES ($1, $2, $3, $4)", j.table)
	if logger.IsEnabledFor(zapcore.DebugLevel) {
		logger.Debugf("%s [%s:%s]", query, tx.Action, tx.ID)
	}
	_, err = j.db.WriteDB.ExecContext(ctx, query, tx.ID, tx.Action, string(payload), j.now().UnixNano())
	if err == nil {
		return nil
	}
	if err = j.db.WrapError(err); errors2.HasCause(err, dbdriver.UniqueKeyViolation) {
		if logger.IsEnabledFor(zapcore.DebugLevel) {
			logger.Debugf("[%s] already journaled", tx.ID)
		}
		return nil
	}
	return errors.Wrapf(err, "failed journaling [%s]", tx.ID)
}

// Get returns the journaled transaction with the passed id
func (j *Journal) Get(ctx context.Context, txID string) (*driver.FinalizedTransaction, error) {
	query := fmt.Sprintf("SELECT payload FROM %s WHERE tx_id = $1", j.table)
	var payload string
	err := j.db.ReadDB.QueryRowContext(ctx, query, txID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(driver.ErrStateNotFound, "transaction [%s] not journaled", txID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed reading [%s]", txID)
	}
	return unmarshal(payload)
}

// List returns the journaled transactions in the order they were recorded
func (j *Journal) List(ctx context.Context) ([]*driver.FinalizedTransaction, error) {
	query := fmt.Sprintf("SELECT payload FROM %s ORDER BY recorded_at, tx_id", j.table)
	rows, err := j.db.ReadDB.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrapf(err, "failed querying [%s]", j.table)
	}
	defer rows.Close()

	var res []*driver.FinalizedTransaction
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.Wrap(err, "failed scanning journal entry")
		}
		tx, err := unmarshal(payload)
		if err != nil {
			return nil, err
		}
		res = append(res, tx)
	}
	return res, rows.Err()
}

func unmarshal(payload string) (*driver.FinalizedTransaction, error) {
	tx := &driver.FinalizedTransaction{}
	if err := json.Unmarshal([]byte(payload), tx); err != nil {
		return nil, errors.Wrap(err, "failed unmarshalling journal entry")
	}
	return tx, nil
}
