/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package db

import (
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/db/driver"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/db/postgres"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/db/sqlite"
	"github.com/pkg/errors"
)

// Open returns the read/write handles for the passed options
func Open(opts driver.Opts) (*driver.RWDB, error) {
	if len(opts.DataSource) == 0 {
		return nil, errors.New("missing data source")
	}
	switch opts.Driver {
	case driver.SQLite, "":
		return sqlite.OpenDB(opts)
	case driver.Postgres:
		return postgres.OpenDB(opts)
	default:
		return nil, errors.Errorf("invalid driver name %s", opts.Driver)
	}
}
