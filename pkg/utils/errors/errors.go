/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package errors

import "github.com/pkg/errors"

// HasCause tells whether target is in the chain of source
func HasCause(source, target error) bool {
	return source != nil && target != nil && errors.Is(source, target)
}

// FirstCause returns the first of the passed targets that source wraps, nil if none
func FirstCause(source error, targets ...error) error {
	for _, target := range targets {
		if HasCause(source, target) {
			return target
		}
	}
	return nil
}

// Wrapf wraps an error in a way compatible with HasCause
func Wrapf(err error, format string, args ...any) error {
	return errors.Wrapf(err, format, args...)
}

func Errorf(format string, args ...any) error {
	return errors.Errorf(format, args...)
}

func New(message string) error {
	return errors.New(message)
}

func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

func WithMessagef(err error, format string, args ...any) error {
	return errors.WithMessagef(err, format, args...)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}
