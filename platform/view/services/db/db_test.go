/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package db_test

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperledger-labs/fsc-obligations/pkg/utils/errors"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/config"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/db"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/db/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLite(t *testing.T) {
	rw, err := db.Open(driver.Opts{
		Driver:     driver.SQLite,
		DataSource: fmt.Sprintf("file:%s", filepath.Join(t.TempDir(), "test.db")),
	})
	require.NoError(t, err)
	defer rw.Close()

	_, err = rw.WriteDB.Exec("CREATE TABLE refs (ref TEXT PRIMARY KEY, tx TEXT NOT NULL)")
	require.NoError(t, err)
	_, err = rw.WriteDB.Exec("INSERT INTO refs (ref, tx) VALUES ($1, $2)", "tx0:0", "tx1")
	require.NoError(t, err)

	_, err = rw.WriteDB.Exec("INSERT INTO refs (ref, tx) VALUES ($1, $2)", "tx0:0", "tx2")
	require.Error(t, err)
	assert.True(t, errors.HasCause(rw.WrapError(err), driver.UniqueKeyViolation))

	var tx string
	require.NoError(t, rw.ReadDB.QueryRow("SELECT tx FROM refs WHERE ref = $1", "tx0:0").Scan(&tx))
	assert.Equal(t, "tx1", tx)
}

func TestOpenInvalid(t *testing.T) {
	_, err := db.Open(driver.Opts{Driver: driver.SQLite})
	assert.Error(t, err)
	_, err = db.Open(driver.Opts{Driver: "oracle", DataSource: "ds"})
	assert.Error(t, err)
}

func TestPrefixConfig(t *testing.T) {
	cp, err := config.NewProviderFromYAML([]byte(`
obligations:
  journal:
    driver: postgres
    datasource: host=localhost dbname=journal
    maxOpenConns: 4
    maxIdleTime: 30s
`))
	require.NoError(t, err)

	c := db.NewPrefixConfig(cp, "obligations.journal")
	assert.True(t, c.IsSet("datasource"))
	assert.False(t, c.IsSet("skipPragmas"))
	opts, err := c.GetOpts()
	require.NoError(t, err)
	assert.Equal(t, driver.Opts{
		Driver:       driver.Postgres,
		DataSource:   "host=localhost dbname=journal",
		MaxOpenConns: 4,
		MaxIdleTime:  30 * time.Second,
	}, opts)
}
