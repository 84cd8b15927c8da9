/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	errors2 "github.com/hyperledger-labs/fsc-obligations/pkg/utils/errors"
	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/logging"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/driver"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/states"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/server/web"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Prefix is the root of the REST endpoints
const Prefix = "/api/iou"

var logger = logging.MustGetLogger("obligations.api")

// Service is the command surface of a party
type Service interface {
	Me() states.Party
	Peers() states.Parties
	IOUs(ctx context.Context) ([]states.StateAndRef, error)
	CorporateActions(ctx context.Context) ([]states.StateAndRef, error)
	IssueIOU(ctx context.Context, amount states.Amount, borrower string) (*driver.FinalizedTransaction, error)
	TransferIOU(ctx context.Context, linearID, newLender string) (*driver.FinalizedTransaction, error)
	SettleIOU(ctx context.Context, linearID string, amount states.Amount) (*driver.FinalizedTransaction, error)
	OfferCorporateAction(ctx context.Context, currency string, profit decimal.Decimal, investor string) (*driver.FinalizedTransaction, error)
	InvestInCorporateAction(ctx context.Context, linearID string, amount states.Amount) (*driver.FinalizedTransaction, error)
	OpenCorporateAction(ctx context.Context, linearID string) (*driver.FinalizedTransaction, error)
	CloseCorporateAction(ctx context.Context, linearID string) (*obligation.Closure, error)
}

// Committed is the answer to a successful command
type Committed struct {
	TxID    string               `json:"tx_id"`
	Message string               `json:"message"`
	Outputs []states.StateAndRef `json:"outputs,omitempty"`
}

// Closed is the answer to close-ca
type Closed struct {
	Committed
	Dividends []Dividend `json:"dividends"`
	Total     string     `json:"total"`
}

type Dividend struct {
	Investor string `json:"investor"`
	Amount   string `json:"amount"`
}

// NewHandler returns the REST handler of s. Prometheus metrics of gatherer are exposed on /metrics when set.
func NewHandler(s Service, gatherer prometheus.Gatherer) *web.HttpHandler {
	h := web.NewHttpHandler(Prefix, logger)
	a := &handlers{s: s}
	h.RegisterURI("/me", http.MethodGet, a.me)
	h.RegisterURI("/peers", http.MethodGet, a.peers)
	h.RegisterURI("/ious", http.MethodGet, a.ious)
	h.RegisterURI("/corporate-actions", http.MethodGet, a.corporateActions)
	h.RegisterURI("/issue-iou", http.MethodPut, a.issueIOU)
	h.RegisterURI("/transfer-iou", http.MethodGet, a.transferIOU)
	h.RegisterURI("/settle-iou", http.MethodGet, a.settleIOU)
	h.RegisterURI("/offer-ca", http.MethodPut, a.offerCA)
	h.RegisterURI("/invest-ca", http.MethodGet, a.investCA)
	h.RegisterURI("/open-ca", http.MethodGet, a.openCA)
	h.RegisterURI("/close-ca", http.MethodGet, a.closeCA)
	if gatherer != nil {
		h.RegisterHandler("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return h
}

type handlers struct {
	s Service
}

func (a *handlers) me(*web.ReqContext) (interface{}, int) {
	return map[string]string{"me": a.s.Me().Name}, http.StatusOK
}

func (a *handlers) peers(*web.ReqContext) (interface{}, int) {
	peers := a.s.Peers()
	names := make([]string, len(peers))
	for i, p := range peers {
		names[i] = p.Name
	}
	return map[string][]string{"peers": names}, http.StatusOK
}

func (a *handlers) ious(ctx *web.ReqContext) (interface{}, int) {
	res, err := a.s.IOUs(ctx.Req.Context())
	if err != nil {
		return failure(err)
	}
	return nonNil(res), http.StatusOK
}

func (a *handlers) corporateActions(ctx *web.ReqContext) (interface{}, int) {
	res, err := a.s.CorporateActions(ctx.Req.Context())
	if err != nil {
		return failure(err)
	}
	return nonNil(res), http.StatusOK
}

func (a *handlers) issueIOU(ctx *web.ReqContext) (interface{}, int) {
	q := query(ctx)
	amount, err := q.amount()
	if err != nil {
		return failure(err)
	}
	party, err := q.required("party")
	if err != nil {
		return failure(err)
	}
	tx, err := a.s.IssueIOU(ctx.Req.Context(), amount, party)
	return committed(tx, err, "IOU of %s lent to %s", amount, party)
}

func (a *handlers) transferIOU(ctx *web.ReqContext) (interface{}, int) {
	q := query(ctx)
	id, err := q.required("id")
	if err != nil {
		return failure(err)
	}
	party, err := q.required("party")
	if err != nil {
		return failure(err)
	}
	tx, err := a.s.TransferIOU(ctx.Req.Context(), id, party)
	return committed(tx, err, "IOU %s transferred to %s", id, party)
}

func (a *handlers) settleIOU(ctx *web.ReqContext) (interface{}, int) {
	q := query(ctx)
	id, err := q.required("id")
	if err != nil {
		return failure(err)
	}
	amount, err := q.amount()
	if err != nil {
		return failure(err)
	}
	tx, err := a.s.SettleIOU(ctx.Req.Context(), id, amount)
	return committed(tx, err, "%s paid off on IOU %s", amount, id)
}

func (a *handlers) offerCA(ctx *web.ReqContext) (interface{}, int) {
	q := query(ctx)
	currency, err := q.required("currency")
	if err != nil {
		return failure(err)
	}
	raw, err := q.required("profit")
	if err != nil {
		return failure(err)
	}
	profit, err := decimal.NewFromString(raw)
	if err != nil {
		return failure(errors.Wrapf(driver.ErrValidation, "invalid profit [%s]", raw))
	}
	party, err := q.required("party")
	if err != nil {
		return failure(err)
	}
	tx, err := a.s.OfferCorporateAction(ctx.Req.Context(), currency, profit, party)
	return committed(tx, err, "corporate action offered to %s", party)
}

func (a *handlers) investCA(ctx *web.ReqContext) (interface{}, int) {
	q := query(ctx)
	id, err := q.required("id")
	if err != nil {
		return failure(err)
	}
	amount, err := q.amount()
	if err != nil {
		return failure(err)
	}
	tx, err := a.s.InvestInCorporateAction(ctx.Req.Context(), id, amount)
	return committed(tx, err, "%s invested in corporate action %s", amount, id)
}

func (a *handlers) openCA(ctx *web.ReqContext) (interface{}, int) {
	id, err := query(ctx).required("id")
	if err != nil {
		return failure(err)
	}
	tx, err := a.s.OpenCorporateAction(ctx.Req.Context(), id)
	return committed(tx, err, "corporate action %s is open, additional investing is unavailable", id)
}

func (a *handlers) closeCA(ctx *web.ReqContext) (interface{}, int) {
	id, err := query(ctx).required("id")
	if err != nil {
		return failure(err)
	}
	closure, err := a.s.CloseCorporateAction(ctx.Req.Context(), id)
	if err != nil {
		return failure(err)
	}
	res := &Closed{
		Committed: Committed{
			TxID:    closure.Transaction.ID,
			Message: fmt.Sprintf("corporate action %s is closed, dividends paid %s", id, closure.Total),
		},
		Dividends: make([]Dividend, len(closure.Dividends)),
		Total:     closure.Total.String(),
	}
	for i, d := range closure.Dividends {
		res.Dividends[i] = Dividend{Investor: d.Investor.Name, Amount: d.Amount.String()}
	}
	return res, http.StatusCreated
}

func committed(tx *driver.FinalizedTransaction, err error, format string, args ...interface{}) (interface{}, int) {
	if err != nil {
		return failure(err)
	}
	return &Committed{TxID: tx.ID, Message: fmt.Sprintf(format, args...), Outputs: tx.Outputs}, http.StatusCreated
}

// failure maps err to the status of its cause
func failure(err error) (interface{}, int) {
	status := http.StatusInternalServerError
	switch errors2.FirstCause(err, driver.ErrValidation, driver.ErrInvalidParty, driver.ErrAmbiguousState,
		driver.ErrStateNotFound, driver.ErrConflictingConsumption, driver.ErrTimeout) {
	case driver.ErrValidation, driver.ErrInvalidParty, driver.ErrAmbiguousState:
		status = http.StatusBadRequest
	case driver.ErrStateNotFound:
		status = http.StatusNotFound
	case driver.ErrConflictingConsumption:
		status = http.StatusConflict
	case driver.ErrTimeout:
		status = http.StatusGatewayTimeout
	}
	logger.Warnf("request failed [%d]: %s", status, err)
	return err.Error(), status
}

func nonNil(res []states.StateAndRef) []states.StateAndRef {
	if res == nil {
		return []states.StateAndRef{}
	}
	return res
}

type params struct {
	get func(string) string
}

func query(ctx *web.ReqContext) *params {
	return &params{get: ctx.Req.URL.Query().Get}
}

func (p *params) required(key string) (string, error) {
	v := p.get(key)
	if len(v) == 0 {
		return "", errors.Wrapf(driver.ErrValidation, "missing parameter [%s]", key)
	}
	return v, nil
}

// amount reads amount in major units and currency
func (p *params) amount() (states.Amount, error) {
	raw, err := p.required("amount")
	if err != nil {
		return states.Amount{}, err
	}
	major, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return states.Amount{}, errors.Wrapf(driver.ErrValidation, "invalid amount [%s]", raw)
	}
	currency, err := p.required("currency")
	if err != nil {
		return states.Amount{}, err
	}
	a, err := states.FromMajor(major, currency)
	if err != nil {
		return states.Amount{}, errors.Wrapf(driver.ErrValidation, "invalid amount [%s]: %s", raw, err)
	}
	return a, nil
}
