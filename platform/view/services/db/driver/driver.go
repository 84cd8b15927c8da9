/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package driver

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

var (
	UniqueKeyViolation = errors.New("unique key violation")
	DeadlockDetected   = errors.New("deadlock detected")
)

type DriverType string

const (
	SQLite   DriverType = "sqlite"
	Postgres DriverType = "postgres"
)

// Opts configures a database handle
type Opts struct {
	Driver       DriverType
	DataSource   string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
	SkipPragmas  bool
}

// ErrorMapper translates driver specific errors into the sentinels of this package
type ErrorMapper interface {
	WrapError(err error) error
}

// RWDB pairs the handles used for reads and writes. Backends that serialize writes
// through a dedicated connection return different handles.
type RWDB struct {
	ReadDB  *sql.DB
	WriteDB *sql.DB
	ErrorMapper
}

func (db *RWDB) Close() error {
	err := db.WriteDB.Close()
	if db.ReadDB != db.WriteDB {
		if err2 := db.ReadDB.Close(); err == nil {
			err = err2
		}
	}
	return err
}

// NoopErrorMapper returns errors unchanged
type NoopErrorMapper struct{}

func (NoopErrorMapper) WrapError(err error) error { return err }
