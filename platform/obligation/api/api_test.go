/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/identity"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/api"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/driver"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/states"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = states.Party{Name: "alice", Key: identity.Identity("alice-key")}
	bob   = states.Party{Name: "bob", Key: identity.Identity("bob-key")}
)

type call struct {
	linearID string
	party    string
	amount   states.Amount
	profit   decimal.Decimal
}

type fakeService struct {
	calls []call
	err   error
	ious  []states.StateAndRef
}

func (f *fakeService) Me() states.Party      { return alice }
func (f *fakeService) Peers() states.Parties { return states.Parties{bob} }

func (f *fakeService) IOUs(context.Context) ([]states.StateAndRef, error) { return f.ious, f.err }

func (f *fakeService) CorporateActions(context.Context) ([]states.StateAndRef, error) {
	return nil, f.err
}

func (f *fakeService) record(c call) (*driver.FinalizedTransaction, error) {
	f.calls = append(f.calls, c)
	if f.err != nil {
		return nil, f.err
	}
	return &driver.FinalizedTransaction{ID: "tx1"}, nil
}

func (f *fakeService) IssueIOU(_ context.Context, amount states.Amount, borrower string) (*driver.FinalizedTransaction, error) {
	return f.record(call{amount: amount, party: borrower})
}

func (f *fakeService) TransferIOU(_ context.Context, linearID, newLender string) (*driver.FinalizedTransaction, error) {
	return f.record(call{linearID: linearID, party: newLender})
}

func (f *fakeService) SettleIOU(_ context.Context, linearID string, amount states.Amount) (*driver.FinalizedTransaction, error) {
	return f.record(call{linearID: linearID, amount: amount})
}

func (f *fakeService) OfferCorporateAction(_ context.Context, currency string, profit decimal.Decimal, investor string) (*driver.FinalizedTransaction, error) {
	return f.record(call{amount: states.Zero(currency), profit: profit, party: investor})
}

func (f *fakeService) InvestInCorporateAction(_ context.Context, linearID string, amount states.Amount) (*driver.FinalizedTransaction, error) {
	return f.record(call{linearID: linearID, amount: amount})
}

func (f *fakeService) OpenCorporateAction(_ context.Context, linearID string) (*driver.FinalizedTransaction, error) {
	return f.record(call{linearID: linearID})
}

func (f *fakeService) CloseCorporateAction(_ context.Context, linearID string) (*obligation.Closure, error) {
	tx, err := f.record(call{linearID: linearID})
	if err != nil {
		return nil, err
	}
	return &obligation.Closure{
		Transaction: tx,
		Dividends:   []states.Dividend{{Investor: bob, Amount: states.MustFromMajor(25, "GBP")}},
		Total:       states.MustFromMajor(25, "GBP"),
	}, nil
}

func serve(t *testing.T, h http.Handler, method, target string, out interface{}) int {
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(method, target, nil))
	if out != nil {
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), out), resp.Body.String())
	}
	return resp.Code
}

func TestQueries(t *testing.T) {
	iou := states.NewIOU(states.MustFromMajor(10, "GBP"), alice, bob)
	s := &fakeService{ious: []states.StateAndRef{{Ref: states.StateRef{TxID: "tx0"}, State: iou}}}
	h := api.NewHandler(s, nil)

	var me map[string]string
	assert.Equal(t, http.StatusOK, serve(t, h, http.MethodGet, "/api/iou/me", &me))
	assert.Equal(t, "alice", me["me"])

	var peers map[string][]string
	assert.Equal(t, http.StatusOK, serve(t, h, http.MethodGet, "/api/iou/peers", &peers))
	assert.Equal(t, []string{"bob"}, peers["peers"])

	var ious []states.StateAndRef
	assert.Equal(t, http.StatusOK, serve(t, h, http.MethodGet, "/api/iou/ious", &ious))
	require.Len(t, ious, 1)
	assert.Equal(t, iou.LinearID, ious[0].State.ID())

	var cas []json.RawMessage
	assert.Equal(t, http.StatusOK, serve(t, h, http.MethodGet, "/api/iou/corporate-actions", &cas))
	assert.Empty(t, cas)
}

func TestCommands(t *testing.T) {
	s := &fakeService{}
	h := api.NewHandler(s, nil)

	var res api.Committed
	assert.Equal(t, http.StatusCreated, serve(t, h, http.MethodPut, "/api/iou/issue-iou?amount=99&currency=GBP&party=bob", &res))
	assert.Equal(t, "tx1", res.TxID)
	assert.Equal(t, "IOU of 99.00 GBP lent to bob", res.Message)
	assert.Equal(t, call{amount: states.Amount{Quantity: 9900, Currency: "GBP"}, party: "bob"}, s.calls[0])

	assert.Equal(t, http.StatusCreated, serve(t, h, http.MethodGet, "/api/iou/transfer-iou?id=l1&party=charlie", nil))
	assert.Equal(t, call{linearID: "l1", party: "charlie"}, s.calls[1])

	assert.Equal(t, http.StatusCreated, serve(t, h, http.MethodGet, "/api/iou/settle-iou?id=l1&amount=5&currency=GBP", nil))
	assert.Equal(t, int64(500), s.calls[2].amount.Quantity)

	assert.Equal(t, http.StatusCreated, serve(t, h, http.MethodPut, "/api/iou/offer-ca?currency=GBP&profit=0.05&party=bob", nil))
	assert.True(t, decimal.RequireFromString("0.05").Equal(s.calls[3].profit))

	assert.Equal(t, http.StatusCreated, serve(t, h, http.MethodGet, "/api/iou/invest-ca?id=c1&amount=500&currency=GBP", nil))
	assert.Equal(t, int64(50000), s.calls[4].amount.Quantity)

	assert.Equal(t, http.StatusCreated, serve(t, h, http.MethodGet, "/api/iou/open-ca?id=c1", nil))

	var closed api.Closed
	assert.Equal(t, http.StatusCreated, serve(t, h, http.MethodGet, "/api/iou/close-ca?id=c1", &closed))
	assert.Equal(t, "25.00 GBP", closed.Total)
	assert.Equal(t, []api.Dividend{{Investor: "bob", Amount: "25.00 GBP"}}, closed.Dividends)
	assert.Len(t, s.calls, 7)
}

func TestBadRequests(t *testing.T) {
	s := &fakeService{}
	h := api.NewHandler(s, nil)

	for _, target := range []string{
		"/api/iou/issue-iou?amount=99&currency=GBP",
		"/api/iou/issue-iou?amount=ninety&currency=GBP&party=bob",
		"/api/iou/issue-iou?amount=92233720368547759&currency=GBP&party=bob",
		"/api/iou/issue-iou?amount=99&party=bob",
		"/api/iou/offer-ca?currency=GBP&profit=much&party=bob",
	} {
		assert.Equal(t, http.StatusBadRequest, serve(t, h, http.MethodPut, target, nil), target)
	}
	assert.Equal(t, http.StatusBadRequest, serve(t, h, http.MethodGet, "/api/iou/open-ca", nil))
	assert.Empty(t, s.calls)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(t, h, http.MethodGet, "/api/iou/issue-iou", nil))
}

func TestFailures(t *testing.T) {
	for _, tc := range []struct {
		err    error
		status int
	}{
		{errors.Wrap(driver.ErrValidation, "only investor may increase own investment"), http.StatusBadRequest},
		{errors.Wrap(driver.ErrInvalidParty, "unknown party"), http.StatusBadRequest},
		{errors.Wrap(driver.ErrAmbiguousState, "two states"), http.StatusBadRequest},
		{errors.Wrap(driver.ErrStateNotFound, "no state"), http.StatusNotFound},
		{errors.Wrap(driver.ErrConflictingConsumption, "spent"), http.StatusConflict},
		{errors.Wrap(driver.ErrTimeout, "no answer"), http.StatusGatewayTimeout},
		{errors.Wrap(driver.ErrSession, "unreachable"), http.StatusInternalServerError},
	} {
		h := api.NewHandler(&fakeService{err: tc.err}, nil)
		var res map[string]string
		assert.Equal(t, tc.status, serve(t, h, http.MethodGet, "/api/iou/open-ca?id=c1", &res), tc.err.Error())
		assert.Equal(t, tc.err.Error(), res["reason"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "commit_committed", Help: "committed"})
	registry.MustRegister(counter)
	counter.Inc()

	h := api.NewHandler(&fakeService{}, registry)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "commit_committed 1")
}
