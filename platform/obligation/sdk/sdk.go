/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdk

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/logging"
	digutils "github.com/hyperledger-labs/fsc-obligations/platform/common/utils/dig"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/api"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/driver"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/services/commit"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/services/directory"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/services/journal"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/services/notary"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/services/vault"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/states"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/core/manager"
	tracing2 "github.com/hyperledger-labs/fsc-obligations/platform/view/sdk/tracing"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/comm"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/db"
	dbdriver "github.com/hyperledger-labs/fsc-obligations/platform/view/services/db/driver"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/events"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/events/simple"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/id/ecdsa"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/metrics/prometheus"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/registry"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/server/web"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/sig"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/tracing"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/view"
	pkgerrors "github.com/pkg/errors"
	prom "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/dig"
)

var logger = logging.MustGetLogger("obligations.sdk")

// Party bundles the services hosted for one party
type Party struct {
	Node      *obligation.Node
	Manager   *manager.Manager
	Vault     *vault.Vault
	Directory *directory.Directory
	Services  *commit.Services
	Metrics   *prom.Registry
	// Journal is nil when no journal database is configured
	Journal *journal.Journal
	// Web is nil when the party has no web address
	Web *web.Server
}

// SDK assembles, from configuration, a network of parties sharing a notary
type SDK struct {
	container *dig.Container
	parties   []*Party
	closers   []io.Closer
	cancel    context.CancelFunc
}

func NewSDK(cs ConfigService) *SDK {
	c := dig.New()
	err := errors.Join(
		c.Provide(func() ConfigService { return cs }),
		c.Provide(digutils.Identity[ConfigService](), dig.As(new(tracing2.ConfigService))),
	)
	if err != nil {
		panic(err)
	}
	return &SDK{container: c}
}

// journalDB is the database hosting the journals, nil when none is configured
type journalDB struct {
	*dbdriver.RWDB
}

func (p *SDK) Install() error {
	err := digutils.ProvideAll(p.container,
		LoadConfig,
		comm.NewNetwork,
		p.newUniqueness,
		p.newJournalDB,
		tracing2.NewTracerProvider,
		newParties,
	)
	if err != nil {
		return err
	}
	if err := p.container.Provide(simple.NewEventBus, dig.As(new(events.EventSystem), new(events.Publisher), new(events.Subscriber))); err != nil {
		return err
	}
	if err := p.container.Invoke(func(parties []*Party) { p.parties = parties }); err != nil {
		p.Stop()
		return err
	}
	logger.Debugf("services installed:\n%s", digutils.Visualize(p.container))
	return nil
}

// Start runs the view managers of the parties and their web servers, if any
func (p *SDK) Start(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)
	for _, party := range p.parties {
		go party.Manager.Start(ctx)
		if party.Web == nil {
			continue
		}
		if err := party.Web.Start(); err != nil {
			p.Stop()
			return pkgerrors.WithMessagef(err, "failed starting web server of [%s]", party.Node.Me().Name)
		}
	}
	logger.Infof("started %d parties", len(p.parties))
	return nil
}

func (p *SDK) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	for _, party := range p.parties {
		if party.Web == nil {
			continue
		}
		if err := party.Web.Stop(); err != nil {
			logger.Warnf("failed stopping web server of [%s]: %s", party.Node.Me().Name, err)
		}
	}
	for _, c := range p.closers {
		if err := c.Close(); err != nil {
			logger.Warnf("failed closing database: %s", err)
		}
	}
	p.closers = nil
}

// Parties returns the hosted parties in configuration order
func (p *SDK) Parties() []*Party {
	return p.parties
}

func (p *SDK) Party(name string) (*Party, error) {
	for _, party := range p.parties {
		if party.Node.Me().Name == name {
			return party, nil
		}
	}
	return nil, pkgerrors.Wrapf(driver.ErrInvalidParty, "party [%s] is not hosted", name)
}

// Subscribe registers l for the transactions finalized by any hosted party
func (p *SDK) Subscribe(l events.Listener) error {
	return p.container.Invoke(func(s events.Subscriber) { s.Subscribe(journal.FinalizedTopic, l) })
}

func (p *SDK) newUniqueness(c *Config) (driver.Uniqueness, error) {
	if c.Notary == MemoryNotary {
		return notary.NewMemory(), nil
	}
	rw, err := db.Open(c.NotaryDB)
	if err != nil {
		return nil, pkgerrors.WithMessage(err, "failed opening notary database")
	}
	p.closers = append(p.closers, rw)
	n, err := notary.NewSQL(rw, "notary")
	if err != nil {
		return nil, err
	}
	if err := n.CreateSchema(); err != nil {
		return nil, err
	}
	logger.Infof("notary backed by [%s]", c.NotaryDB.Driver)
	return n, nil
}

func (p *SDK) newJournalDB(c *Config) (*journalDB, error) {
	if c.Journal == nil {
		return &journalDB{}, nil
	}
	rw, err := db.Open(*c.Journal)
	if err != nil {
		return nil, pkgerrors.WithMessage(err, "failed opening journal database")
	}
	p.closers = append(p.closers, rw)
	return &journalDB{RWDB: rw}, nil
}

type identityProvider view.Identity

func (i identityProvider) DefaultIdentity() view.Identity { return view.Identity(i) }

type signer struct {
	party  states.Party
	signer sig.Signer
	verify sig.Verifier
}

func newParties(in struct {
	dig.In
	Config     *Config
	Network    *comm.Network
	Uniqueness driver.Uniqueness
	JournalDB  *journalDB
	Publisher  events.Publisher
	Tracer     trace.TracerProvider
}) ([]*Party, error) {
	signers := make([]signer, len(in.Config.Parties))
	for i, pc := range in.Config.Parties {
		id, s, v, err := loadSigner(pc)
		if err != nil {
			return nil, pkgerrors.WithMessagef(err, "failed loading key of [%s]", pc.Name)
		}
		signers[i] = signer{party: states.Party{Name: pc.Name, Key: id}, signer: s, verify: v}
	}

	parties := make([]*Party, len(signers))
	for i, s := range signers {
		party, err := newParty(in.Config, in.Config.Parties[i], s, signers, in.Network, in.Uniqueness, in.JournalDB, in.Publisher, in.Tracer)
		if err != nil {
			return nil, pkgerrors.WithMessagef(err, "failed setting up [%s]", s.party.Name)
		}
		parties[i] = party
	}
	return parties, nil
}

// loadSigner reads the key of the party from its key path, writing a fresh one there when the file is missing
func loadSigner(pc PartyConfig) (view.Identity, *ecdsa.Signer, *ecdsa.Verifier, error) {
	if len(pc.KeyPath) == 0 {
		return ecdsa.NewSigner()
	}
	raw, err := os.ReadFile(pc.KeyPath)
	if err == nil {
		return ecdsa.NewSignerFromPEM(raw)
	}
	if !os.IsNotExist(err) {
		return nil, nil, nil, pkgerrors.Wrapf(err, "failed reading [%s]", pc.KeyPath)
	}

	id, s, v, err := ecdsa.NewSigner()
	if err != nil {
		return nil, nil, nil, err
	}
	if raw, err = s.PEM(); err != nil {
		return nil, nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(pc.KeyPath), 0o700); err != nil {
		return nil, nil, nil, pkgerrors.Wrapf(err, "failed creating directory of [%s]", pc.KeyPath)
	}
	if err := os.WriteFile(pc.KeyPath, raw, 0o600); err != nil {
		return nil, nil, nil, pkgerrors.Wrapf(err, "failed writing [%s]", pc.KeyPath)
	}
	logger.Infof("generated key of [%s] at [%s]", pc.Name, pc.KeyPath)
	return id, s, v, nil
}

// replay restores the vault from the transactions the journal recorded in previous runs
func replay(j *journal.Journal, v *vault.Vault) error {
	ctx := context.Background()
	txs, err := j.List(ctx)
	if err != nil {
		return err
	}
	for _, tx := range txs {
		if err := v.Append(ctx, tx); err != nil {
			return pkgerrors.WithMessagef(err, "failed replaying [%s]", tx.ID)
		}
	}
	if len(txs) != 0 {
		logger.Infof("replayed %d transactions from the journal", len(txs))
	}
	return nil
}

func newParty(c *Config, pc PartyConfig, me signer, all []signer, network *comm.Network, uniqueness driver.Uniqueness, jdb *journalDB, publisher events.Publisher, tracer trace.TracerProvider) (*Party, error) {
	sigService := sig.NewService()
	if err := sigService.RegisterSigner(me.party.Key, me.signer, me.verify); err != nil {
		return nil, err
	}
	d := directory.New()
	for _, s := range all {
		if err := d.Register(s.party); err != nil {
			return nil, err
		}
	}
	v := vault.New(me.party)

	var history journal.Sinks
	var j *journal.Journal
	if jdb.RWDB != nil {
		var err error
		if j, err = journal.New(jdb.RWDB, "journal_"+me.party.Name); err != nil {
			return nil, err
		}
		if err := j.CreateSchema(); err != nil {
			return nil, err
		}
		if err := replay(j, v); err != nil {
			return nil, err
		}
		history = append(history, j)
	}
	history = append(history, v, journal.NewPublisher(publisher))

	metrics := prom.NewRegistry()
	mp := prometheus.NewProvider(metrics)
	services := &commit.Services{
		Me:             me.party,
		Signer:         sigService,
		Ledger:         v,
		Directory:      d,
		Uniqueness:     uniqueness,
		History:        history,
		Metrics:        commit.NewMetrics(mp),
		Timeout:        c.Timeout,
		OutcomeTimeout: c.OutcomeTimeout,
	}
	sp := registry.New()
	if err := sp.RegisterService(services); err != nil {
		return nil, err
	}

	endpoint, err := network.Join(me.party.Name, me.party.Key)
	if err != nil {
		return nil, err
	}
	m := manager.New(sp, endpoint, identityProvider(me.party.Key), sigService, tracing.NewTracerProvider(tracer, mp), mp)
	if err := m.RegisterResponder(commit.NewResponderView(), &commit.CommitView{}); err != nil {
		return nil, err
	}

	party := &Party{
		Node:      obligation.NewNode(me.party, v, d, m),
		Manager:   m,
		Vault:     v,
		Directory: d,
		Services:  services,
		Metrics:   metrics,
		Journal:   j,
	}
	if len(pc.Web.Address) != 0 {
		party.Web = web.NewServer(pc.Web.Address, api.NewHandler(party.Node, metrics))
	}
	return party, nil
}
