/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package obligations

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/logging"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/api"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/sdk"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/config"
	"github.com/pkg/errors"
)

var logger = logging.MustGetLogger("obligations.integration")

// Topology lists the parties of a network and where their notary keeps its records
type Topology struct {
	Parties []string
	// NotaryDataSource selects a sqlite notary when set
	NotaryDataSource string
}

// YAML renders the configuration of the topology, every party serving on a free local port
func (t *Topology) YAML() string {
	var sb strings.Builder
	sb.WriteString("obligations:\n  session:\n    timeout: 5s\n    outcomeTimeout: 10s\n")
	if len(t.NotaryDataSource) != 0 {
		fmt.Fprintf(&sb, "  notary:\n    type: sql\n    driver: sqlite\n    datasource: %s\n", t.NotaryDataSource)
	}
	sb.WriteString("  parties:\n")
	for _, p := range t.Parties {
		fmt.Fprintf(&sb, "    - name: %s\n      web:\n        address: 127.0.0.1:0\n", p)
	}
	return sb.String()
}

// Network is a running set of parties reachable over their REST API
type Network struct {
	sdk     *sdk.SDK
	clients map[string]*api.Client
}

func Start(ctx context.Context, t *Topology) (*Network, error) {
	cp, err := config.NewProviderFromYAML([]byte(t.YAML()))
	if err != nil {
		return nil, err
	}
	s := sdk.NewSDK(cp)
	if err := s.Install(); err != nil {
		return nil, err
	}
	if err := s.Start(ctx); err != nil {
		return nil, err
	}

	n := &Network{sdk: s, clients: map[string]*api.Client{}}
	for _, p := range s.Parties() {
		c, err := api.NewClient(&api.ClientConfig{Host: p.Web.Addr()})
		if err != nil {
			s.Stop()
			return nil, err
		}
		n.clients[p.Node.Me().Name] = c
	}
	logger.Infof("network of %d parties started", len(n.clients))
	return n, nil
}

func (n *Network) Client(name string) *api.Client {
	c, ok := n.clients[name]
	if !ok {
		panic(errors.Errorf("no party [%s] in the network", name))
	}
	return c
}

func (n *Network) Stop() {
	n.sdk.Stop()
}
