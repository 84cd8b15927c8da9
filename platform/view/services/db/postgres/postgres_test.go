/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package postgres

import (
	"testing"

	"github.com/hyperledger-labs/fsc-obligations/pkg/utils/errors"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/db/driver"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestErrorMapper(t *testing.T) {
	m := &ErrorMapper{}

	err := m.WrapError(errors.Wrapf(&pgconn.PgError{Code: "23505"}, "insert"))
	assert.True(t, errors.HasCause(err, driver.UniqueKeyViolation))

	err = m.WrapError(&pq.Error{Code: "23505"})
	assert.True(t, errors.HasCause(err, driver.UniqueKeyViolation))

	err = m.WrapError(&pgconn.PgError{Code: "40P01"})
	assert.True(t, errors.HasCause(err, driver.DeadlockDetected))

	other := &pgconn.PgError{Code: "42P01"}
	assert.Equal(t, other, m.WrapError(other))

	plain := errors.New("plain")
	assert.Equal(t, plain, m.WrapError(plain))
}
