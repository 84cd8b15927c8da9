/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hyperledger-labs/fsc-obligations/pkg/utils/errors"
	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/logging"
	viperutil "github.com/hyperledger-labs/fsc-obligations/platform/view/services/config/viper"
	"github.com/spf13/viper"
)

const (
	// CmdRoot names the configuration file (core.yaml) and prefixes the environment overrides (CORE_)
	CmdRoot = "core"
	// CfgPathEnv names a directory searched for the configuration file
	CfgPathEnv  = "OBLIGATIONS_CFG_PATH"
	OfficialPath = "/etc/hyperledger-labs/fsc-obligations"
)

var logOutput io.Writer = os.Stderr

// Provider reads configuration keys from a YAML document. Environment variables such as
// CORE_OBLIGATIONS_NOTARY_TYPE override the key they name (obligations.notary.type).
type Provider struct {
	Backend *viper.Viper
}

// NewProvider reads core.yaml from the first of confPath, $OBLIGATIONS_CFG_PATH, the working
// directory and OfficialPath that contains one.
func NewProvider(confPath string) (*Provider, error) {
	v := viper.New()
	v.SetConfigName(CmdRoot)
	for _, dir := range []string{confPath, os.Getenv(CfgPathEnv), ".", OfficialPath} {
		if len(dir) != 0 {
			v.AddConfigPath(dir)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		if errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, errors.Errorf("no %s.yaml found, point %s to the directory containing it", CmdRoot, CfgPathEnv)
		}
		return nil, errors.Wrapf(err, "failed reading %s.yaml", CmdRoot)
	}
	return newProvider(v)
}

// NewProviderFromYAML returns a provider over the passed YAML document
func NewProviderFromYAML(raw []byte) (*Provider, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(raw)); err != nil {
		return nil, errors.Wrap(err, "failed reading yaml config")
	}
	return newProvider(v)
}

func newProvider(v *viper.Viper) (*Provider, error) {
	p := &Provider{Backend: v}
	if err := p.applyEnv(os.Environ()); err != nil {
		return nil, err
	}
	logging.Init(logging.Config{
		Format:  v.GetString("logging.format"),
		LogSpec: v.GetString("logging.spec"),
		Writer:  logOutput,
	})
	return p, nil
}

func (p *Provider) GetString(key string) string {
	return p.Backend.GetString(key)
}

func (p *Provider) GetInt(key string) int {
	return p.Backend.GetInt(key)
}

func (p *Provider) GetDuration(key string) time.Duration {
	return p.Backend.GetDuration(key)
}

func (p *Provider) GetStringSlice(key string) []string {
	return p.Backend.GetStringSlice(key)
}

func (p *Provider) IsSet(key string) bool {
	return p.Backend.IsSet(key)
}

func (p *Provider) UnmarshalKey(key string, rawVal interface{}) error {
	return viperutil.EnhancedExactUnmarshal(p.Backend, key, rawVal)
}

// applyEnv writes the overrides into the tree they belong to. viper.Set alone would shadow the
// siblings of the key when its parent is read with UnmarshalKey.
func (p *Provider) applyEnv(environ []string) error {
	prefix := strings.ToUpper(CmdRoot) + "_"
	for _, e := range environ {
		name, value, ok := strings.Cut(e, "=")
		if !ok || len(value) == 0 || !strings.HasPrefix(name, prefix) {
			continue
		}
		path := strings.Split(strings.ToLower(strings.TrimPrefix(name, prefix)), "_")
		key := strings.Join(path, ".")
		if len(p.Backend.GetStringMap(key)) != 0 {
			fmt.Fprintf(logOutput, "ignoring %s, %s is not a leaf\n", name, key)
			continue
		}
		if len(path) == 1 || !p.Backend.IsSet(strings.Join(path[:len(path)-1], ".")) {
			p.Backend.Set(key, value)
			continue
		}
		root := p.Backend.GetStringMap(path[0])
		if err := setLeaf(root, path[1:], value); err != nil {
			return errors.WithMessagef(err, "failed applying %s", name)
		}
		p.Backend.Set(path[0], root)
	}
	return nil
}

func setLeaf(m map[string]interface{}, path []string, value interface{}) error {
	for _, k := range path[:len(path)-1] {
		next, ok := m[k].(map[string]interface{})
		if !ok {
			return errors.Errorf("[%s] is not a map", k)
		}
		m = next
	}
	m[path[len(path)-1]] = value
	return nil
}
