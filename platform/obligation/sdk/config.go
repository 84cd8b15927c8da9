/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdk

import (
	"regexp"
	"time"

	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/db"
	dbdriver "github.com/hyperledger-labs/fsc-obligations/platform/view/services/db/driver"
	"github.com/pkg/errors"
)

const (
	PartiesKey        = "obligations.parties"
	TimeoutKey        = "obligations.session.timeout"
	OutcomeTimeoutKey = "obligations.session.outcomeTimeout"
	NotaryKey         = "obligations.notary"
	JournalKey        = "obligations.journal"
)

type NotaryType string

const (
	MemoryNotary NotaryType = "memory"
	SQLNotary    NotaryType = "sql"
)

var partyName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ConfigService models the configuration the SDK reads from
type ConfigService interface {
	IsSet(key string) bool
	GetString(key string) string
	GetDuration(key string) time.Duration
	UnmarshalKey(key string, rawVal interface{}) error
}

type WebConfig struct {
	Address string `mapstructure:"address"`
}

// PartyConfig describes a party hosted by the SDK
type PartyConfig struct {
	Name string    `mapstructure:"name"`
	Web  WebConfig `mapstructure:"web"`
	// KeyPath is the PEM file holding the secret key of the party, generated when missing.
	// Without it the party gets a fresh key at every start.
	KeyPath string `mapstructure:"keyPath"`
}

type Config struct {
	Parties        []PartyConfig
	Timeout        time.Duration
	OutcomeTimeout time.Duration
	Notary         NotaryType
	NotaryDB       dbdriver.Opts
	// Journal is nil when no journal database is configured
	Journal *dbdriver.Opts
}

// LoadConfig reads the SDK configuration from cs
func LoadConfig(cs ConfigService) (*Config, error) {
	c := &Config{
		Timeout:        cs.GetDuration(TimeoutKey),
		OutcomeTimeout: cs.GetDuration(OutcomeTimeoutKey),
		Notary:         NotaryType(cs.GetString(NotaryKey + ".type")),
	}
	if err := cs.UnmarshalKey(PartiesKey, &c.Parties); err != nil {
		return nil, errors.Wrapf(err, "failed reading [%s]", PartiesKey)
	}
	if len(c.Parties) == 0 {
		return nil, errors.Errorf("no parties configured under [%s]", PartiesKey)
	}
	seen := map[string]bool{}
	for _, p := range c.Parties {
		if !partyName.MatchString(p.Name) {
			return nil, errors.Errorf("invalid party name [%s]", p.Name)
		}
		if seen[p.Name] {
			return nil, errors.Errorf("party [%s] configured twice", p.Name)
		}
		seen[p.Name] = true
	}

	switch c.Notary {
	case "", MemoryNotary:
		c.Notary = MemoryNotary
	case SQLNotary:
		opts, err := db.NewPrefixConfig(cs, NotaryKey).GetOpts()
		if err != nil {
			return nil, errors.Wrap(err, "failed reading notary database options")
		}
		c.NotaryDB = opts
	default:
		return nil, errors.Errorf("unknown notary type [%s]", c.Notary)
	}

	if cs.IsSet(JournalKey) {
		opts, err := db.NewPrefixConfig(cs, JournalKey).GetOpts()
		if err != nil {
			return nil, errors.Wrap(err, "failed reading journal database options")
		}
		c.Journal = &opts
	}
	return c, nil
}
