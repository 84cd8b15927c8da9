/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package notary

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	errors2 "github.com/hyperledger-labs/fsc-obligations/pkg/utils/errors"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/driver"
	dbdriver "github.com/hyperledger-labs/fsc-obligations/platform/view/services/db/driver"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

var validName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// SQL is a uniqueness service backed by a relational database.
// The primary key on the consumed ref is the single point where concurrent consumptions are serialized.
type SQL struct {
	db       *dbdriver.RWDB
	consumed string
	requests string
	now      func() time.Time
}

// NewSQL returns a uniqueness service storing its tables under the passed prefix
func NewSQL(db *dbdriver.RWDB, prefix string) (*SQL, error) {
	if !validName.MatchString(prefix) {
		return nil, errors.Errorf("invalid table prefix [%s]", prefix)
	}
	return &SQL{
		db:       db,
		consumed: prefix + "_consumed",
		requests: prefix + "_requests",
		now:      time.Now,
	}, nil
}

// CreateSchema creates the tables if they do not exist
func (s *SQL) CreateSchema() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			ref TEXT NOT NULL PRIMARY KEY,
			tx_id TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS %s (
			tx_id TEXT NOT NULL PRIMARY KEY,
			accepted_at BIGINT NOT NULL
		);`, s.consumed, s.requests)
	if logger.IsEnabledFor(zapcore.DebugLevel) {
		logger.Debug(query)
	}
	if _, err := s.db.WriteDB.Exec(query); err != nil {
		return errors.Wrapf(err, "failed creating notary tables")
	}
	return nil
}

func (s *SQL) Submit(ctx context.Context, req *driver.Request) (*driver.Receipt, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}
	if ts, ok, err := s.acceptedAt(ctx, req.TxID); err != nil {
		return nil, err
	} else if ok {
		return accepted(ts), nil
	}

	now := s.now()
	err := s.insert(ctx, req, now)
	if err == nil {
		if logger.IsEnabledFor(zapcore.DebugLevel) {
			logger.Debugf("accepted [%s] consuming [%d] inputs", req.TxID, len(req.Consumed))
		}
		return accepted(now), nil
	}
	if !errors2.HasCause(err, dbdriver.UniqueKeyViolation) {
		return nil, errors.WithMessagef(err, "failed recording [%s]", req.TxID)
	}

	conflicts, err := s.conflicts(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(conflicts) != 0 {
		logger.Warnf("rejecting [%s]: [%d] inputs already consumed", req.TxID, len(conflicts))
		return rejected(conflicts), nil
	}
	// the same transaction was recorded concurrently
	if ts, ok, err := s.acceptedAt(ctx, req.TxID); err != nil {
		return nil, err
	} else if ok {
		return accepted(ts), nil
	}
	return nil, errors.Errorf("no conflict found for rejected [%s]", req.TxID)
}

func (s *SQL) insert(ctx context.Context, req *driver.Request, now time.Time) (err error) {
	tx, err := s.db.WriteDB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed starting transaction")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				logger.Warnf("failed rolling back [%s]: %s", req.TxID, rbErr)
			}
		}
	}()

	consume := fmt.Sprintf("INSERT INTO %s (ref, tx_id) VALUES ($1, $2)", s.consumed)
	for _, ref := range req.Consumed {
		if _, err = tx.ExecContext(ctx, consume, ref.String(), req.TxID); err != nil {
			return s.db.WrapError(err)
		}
	}
	record := fmt.Sprintf("INSERT INTO %s (tx_id, accepted_at) VALUES ($1, $2)", s.requests)
	if _, err = tx.ExecContext(ctx, record, req.TxID, now.UnixNano()); err != nil {
		return s.db.WrapError(err)
	}
	if err = tx.Commit(); err != nil {
		return s.db.WrapError(err)
	}
	return nil
}

func (s *SQL) acceptedAt(ctx context.Context, txID string) (time.Time, bool, error) {
	var nanos int64
	query := fmt.Sprintf("SELECT accepted_at FROM %s WHERE tx_id = $1", s.requests)
	err := s.db.ReadDB.QueryRowContext(ctx, query, txID).Scan(&nanos)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, errors.Wrapf(err, "failed looking up [%s]", txID)
	}
	return time.Unix(0, nanos), true, nil
}

func (s *SQL) conflicts(ctx context.Context, req *driver.Request) ([]driver.Conflict, error) {
	query := fmt.Sprintf("SELECT tx_id FROM %s WHERE ref = $1", s.consumed)
	var conflicts []driver.Conflict
	for _, ref := range req.Consumed {
		var other string
		err := s.db.ReadDB.QueryRowContext(ctx, query, ref.String()).Scan(&other)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed looking up consumer of [%s]", ref)
		}
		if other != req.TxID {
			conflicts = append(conflicts, driver.Conflict{Ref: ref, TxID: other})
		}
	}
	return conflicts, nil
}
