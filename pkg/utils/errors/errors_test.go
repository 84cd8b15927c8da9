/*
Copyright IBM Corp All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package errors

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestHasCause(t *testing.T) {
	conflict := errors.New("conflict")
	err := Wrapf(errors.WithMessage(Wrap(conflict, "notary"), "commit"), "settle [%s]", "l1")
	assert.True(t, HasCause(err, conflict))
	assert.False(t, HasCause(err, errors.New("conflict")))
	assert.False(t, HasCause(nil, conflict))
}

func TestFirstCause(t *testing.T) {
	a := errors.New("a")
	b := errors.New("b")
	err := Wrapf(errors.WithMessage(b, "outer"), "wrapped")
	assert.Equal(t, b, FirstCause(err, a, b))
	assert.Nil(t, FirstCause(errors.New("c"), a, b))
	assert.Nil(t, FirstCause(nil, a))
}
