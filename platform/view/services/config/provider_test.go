/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notaryOpts struct {
	Type         string
	Driver       string
	DataSource   string
	MaxOpenConns int
}

type party struct {
	Name string
	Web  struct {
		Address string
	}
}

func TestReadFile(t *testing.T) {
	p, err := NewProvider("./testdata")
	require.NoError(t, err)

	assert.Equal(t, "a string", p.GetString("label"))
	assert.Equal(t, 5, p.GetInt("number"))
	assert.Equal(t, 5*time.Second, p.GetDuration("obligations.session.timeout"))
	assert.True(t, p.IsSet("obligations.notary.type"))
	assert.False(t, p.IsSet("obligations.journal"))

	var parties []party
	require.NoError(t, p.UnmarshalKey("obligations.parties", &parties))
	require.Len(t, parties, 3)
	assert.Equal(t, "alice", parties[0].Name)
	assert.Equal(t, "127.0.0.1:0", parties[0].Web.Address)
	assert.Empty(t, parties[2].Web.Address)

	var notary notaryOpts
	require.NoError(t, p.UnmarshalKey("obligations.notary", &notary))
	assert.Equal(t, notaryOpts{Type: "sql", Driver: "sqlite", DataSource: "notary.db", MaxOpenConns: 4}, notary)
}

func TestMissingFile(t *testing.T) {
	t.Setenv(CfgPathEnv, t.TempDir())
	_, err := NewProvider(t.TempDir())
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CORE_OBLIGATIONS_NOTARY_DATASOURCE", "other.db")
	t.Setenv("CORE_LABEL", "new=string=with=equals")
	t.Setenv("CORE_NUMBER", "10")
	t.Setenv("CORE_NON_EXISTENT_KEY", "new")
	t.Setenv("CORE_OBLIGATIONS_NOTARY", "ignored")
	t.Setenv("CORE_OBLIGATIONS_SESSION_TIMEOUT", "") // empty values are disregarded

	p, err := NewProvider("./testdata")
	require.NoError(t, err)

	assert.Equal(t, "new=string=with=equals", p.GetString("label"))
	assert.Equal(t, 10, p.GetInt("number"))
	assert.Equal(t, "new", p.GetString("non.existent.key"))
	assert.Equal(t, 5*time.Second, p.GetDuration("obligations.session.timeout"))

	var notary notaryOpts
	require.NoError(t, p.UnmarshalKey("obligations.notary", &notary))
	assert.Equal(t, "other.db", notary.DataSource)
	// siblings of the overridden key survive
	assert.Equal(t, "sql", notary.Type)
	assert.Equal(t, 4, notary.MaxOpenConns)
}

func TestFromYAML(t *testing.T) {
	p, err := NewProviderFromYAML([]byte("obligations:\n  parties: [alice, bob]\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, p.GetStringSlice("obligations.parties"))

	_, err = NewProviderFromYAML([]byte("obligations: [unclosed"))
	assert.Error(t, err)
}
