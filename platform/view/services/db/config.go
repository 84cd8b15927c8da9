/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package db

import (
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/db/driver"
)

// Config models the configuration the database options are read from
type Config interface {
	// IsSet checks to see if the key has been set in any of the data locations
	IsSet(key string) bool
	// UnmarshalKey takes a single key and unmarshals it into a Struct
	UnmarshalKey(key string, rawVal interface{}) error
}

// PrefixConfig extends Config by adding a given prefix to any passed key
type PrefixConfig struct {
	config Config
	prefix string
}

// NewPrefixConfig returns a new PrefixConfig instance for the passed prefix
func NewPrefixConfig(config Config, prefix string) *PrefixConfig {
	return &PrefixConfig{config: config, prefix: prefix}
}

// IsSet checks to see if the key has been set in any of the data locations
func (c *PrefixConfig) IsSet(key string) bool {
	return c.config.IsSet(c.key(key))
}

// UnmarshalKey takes a single key, appends to it the prefix set in the struct, and unmarshals it into a Struct
func (c *PrefixConfig) UnmarshalKey(key string, rawVal interface{}) error {
	return c.config.UnmarshalKey(c.key(key), rawVal)
}

func (c *PrefixConfig) key(key string) string {
	if len(key) != 0 {
		return c.prefix + "." + key
	}
	return c.prefix
}

// GetOpts reads the database options stored under the prefix of c
func (c *PrefixConfig) GetOpts() (driver.Opts, error) {
	o := driver.Opts{}
	if err := c.UnmarshalKey("", &o); err != nil {
		return driver.Opts{}, err
	}
	return o, nil
}
