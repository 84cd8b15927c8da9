/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package utils

import (
	"bytes"
	"errors"
	"fmt"

	"go.uber.org/dig"
)

// Visualize renders the dependency graph of c in DOT format
func Visualize(c *dig.Container) string {
	var w bytes.Buffer
	if err := dig.Visualize(c, &w); err != nil {
		return fmt.Sprintf("could not visualize: [%v]", err)
	}
	return (&w).String()
}

// ProvideAll provides every constructor to c and joins the failures
func ProvideAll(c *dig.Container, constructors ...interface{}) error {
	errs := make([]error, len(constructors))
	for i, constructor := range constructors {
		errs[i] = c.Provide(constructor)
	}
	return errors.Join(errs...)
}

// Identity returns a constructor that hands back its input.
// Combined with dig.As it exposes a provided value under further interfaces.
func Identity[T any]() func(T) T {
	return func(t T) T {
		return t
	}
}
