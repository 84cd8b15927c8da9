/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package viperutil

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnhancedExactUnmarshal(t *testing.T) {
	v := viper.New()
	v.Set("session", map[string]interface{}{
		"timeout": "3s",
		"peers":   "[alice, bob ,charlie]",
		"retries": "4",
	})

	var out struct {
		Timeout time.Duration
		Peers   []string
		Retries int
	}
	require.NoError(t, EnhancedExactUnmarshal(v, "session", &out))
	assert.Equal(t, 3*time.Second, out.Timeout)
	assert.Equal(t, []string{"alice", "bob", "charlie"}, out.Peers)
	assert.Equal(t, 4, out.Retries)

	assert.Error(t, EnhancedExactUnmarshal(v, "session", out))
}
