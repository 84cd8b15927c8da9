/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package commit

import (
	"bytes"
	"context"
	"time"

	errors2 "github.com/hyperledger-labs/fsc-obligations/pkg/utils/errors"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/contract"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/driver"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/services/transaction"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/states"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/session"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/tracing"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/view"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
)

const unknownAction = "unknown"

// ResponderView answers a CommitView: it validates the proposal on its own, signs it
// and records the transition once the initiator reports it finalized.
type ResponderView struct{}

func NewResponderView() *ResponderView {
	return &ResponderView{}
}

func (r *ResponderView) Call(ctx view.Context) (interface{}, error) {
	s, err := GetServices(ctx)
	if err != nil {
		return nil, abort(Init, errors.Wrap(driver.ErrInternal, err.Error()))
	}
	start := time.Now()
	final, action, err := r.respond(ctx, s)
	s.Metrics.observe(action, responderRole, start, err)
	if err != nil {
		logger.Warnf("[%s] responding to [%s] failed: %s", s.Me, ctx.Session().Info().Endpoint, err)
		return nil, err
	}
	logger.Infof("[%s] recorded [%s:%s]", s.Me, action, final.ID)
	return final, nil
}

func (r *ResponderView) respond(ctx view.Context, s *Services) (*driver.FinalizedTransaction, string, error) {
	js := session.JSON(ctx)
	caller := states.Party{Name: ctx.Session().Info().Endpoint, Key: ctx.Session().Info().Caller}

	proposal := &Proposal{}
	if err := js.ReceiveWithTimeout(proposal, s.timeout()); err != nil {
		return nil, unknownAction, abort(Init, receiveError(caller, err))
	}
	tx := proposal.Transition
	if tx == nil {
		return nil, unknownAction, r.reject(js, Init, errors.Wrap(driver.ErrValidation, "empty proposal"), "empty proposal")
	}
	action := string(tx.Command.Action)
	txID, err := tx.ID()
	if err != nil {
		return nil, action, r.reject(js, Init, errors.Wrap(driver.ErrInternal, err.Error()), "cannot compute transaction id")
	}

	spanCtx := ctx.Context()
	if len(proposal.TraceContext) != 0 {
		if sc, err := tracing.UnmarshalContext(proposal.TraceContext); err == nil && sc.IsValid() {
			spanCtx = trace.ContextWithRemoteSpanContext(spanCtx, sc)
		}
	}
	spanCtx, span := ctx.StartSpanFrom(spanCtx, "commit_response", tracing.WithAttributes(
		tracing.String("tx_id", txID),
		tracing.String("action", action),
	), trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	s.Directory.Learn(proposal.Disclosures...)
	if logger.IsEnabledFor(zapcore.DebugLevel) {
		logger.Debugf("[%s] received proposal [%s:%s] from [%s]", s.Me, action, txID, caller)
	}

	span.AddEvent(LocalValidate.String())
	if verdict := contract.Validate(tx); !verdict.OK {
		return nil, action, r.reject(js, LocalValidate, verdict.Err(), verdict.Reason)
	}
	if !tx.RequiredSigners.Contains(s.Me.Key) {
		err := errors.Wrapf(driver.ErrInvalidParty, "[%s] is not a required signer", s.Me)
		return nil, action, r.reject(js, LocalValidate, err, err.Error())
	}
	if err := r.checkInputs(spanCtx, s, tx); err != nil {
		return nil, action, r.reject(js, LocalValidate, err, err.Error())
	}
	if s.Checker != nil {
		if err := s.Checker.Check(spanCtx, tx); err != nil {
			return nil, action, r.reject(js, LocalValidate, errors.Wrap(driver.ErrValidation, err.Error()), err.Error())
		}
	}

	span.AddEvent(SignLocal.String())
	content, err := tx.Content()
	if err != nil {
		return nil, action, r.reject(js, SignLocal, errors.Wrap(driver.ErrInternal, err.Error()), "cannot compute content")
	}
	sigma, err := s.Signer.Sign(s.Me.Key, content)
	if err != nil {
		return nil, action, r.reject(js, SignLocal, errors.Wrap(driver.ErrInternal, err.Error()), "cannot sign")
	}
	if err := js.Send(&Reply{Signature: &transaction.Signature{Signer: s.Me.Key, Bytes: sigma}}); err != nil {
		return nil, action, abort(SignLocal, errors.Wrapf(driver.ErrSession, "failed replying to [%s]: %s", caller, err))
	}

	span.AddEvent(Finalize.String())
	outcome := &Outcome{}
	if err := js.ReceiveWithTimeout(outcome, s.outcomeTimeout()); err != nil {
		return nil, action, abort(Finalize, receiveError(caller, err))
	}
	if !outcome.Finalized {
		return nil, action, abort(Aborted, errors.Wrap(ErrRemoteAbort, outcome.Reason))
	}
	final, err := r.record(spanCtx, s, tx, txID, outcome)
	ack := &Ack{TxID: txID}
	if err != nil {
		ack.Error = err.Error()
	}
	if sendErr := js.Send(ack); sendErr != nil {
		logger.Warnf("[%s] failed acknowledging [%s] to [%s]: %s", s.Me, txID, caller, sendErr)
	}
	if err != nil {
		return nil, action, abort(Finalize, err)
	}
	return final, action, nil
}

// record checks that the finalized transition carries every required signature and appends it to the history
func (r *ResponderView) record(ctx context.Context, s *Services, tx *transaction.Transition, txID string, outcome *Outcome) (*driver.FinalizedTransaction, error) {
	if outcome.TxID != txID {
		return nil, errors.Wrapf(driver.ErrValidation, "outcome for [%s], expected [%s]", outcome.TxID, txID)
	}
	signed := &transaction.SignedTransition{Transition: tx, Signatures: outcome.Signatures}
	if missing := signed.Missing(); len(missing) != 0 {
		return nil, errors.Wrapf(driver.ErrSignature, "finalized [%s] misses [%d] signatures", txID, len(missing))
	}
	if err := signed.Verify(s.Signer); err != nil {
		return nil, err
	}
	final := signed.Finalize(txID, &driver.Receipt{Accepted: true, Timestamp: outcome.Timestamp})
	if err := s.History.Append(ctx, final); err != nil {
		return nil, errors.Wrapf(driver.ErrInternal, "failed recording [%s]: %s", txID, err)
	}
	return final, nil
}

// reject tells the initiator why the proposal is refused and aborts
func (r *ResponderView) reject(js interface{ Send(interface{}) error }, phase Phase, cause error, reason string) error {
	if err := js.Send(&Reply{Violation: reason}); err != nil {
		logger.Warnf("failed sending violation [%s]: %s", reason, err)
	}
	return abort(phase, cause)
}

// checkInputs verifies the inputs against the local ledger. An input the local party participates in
// must be recorded with the same content. Other inputs are vouched for by their own participants,
// whose signatures the rules require.
func (r *ResponderView) checkInputs(ctx context.Context, s *Services, tx *transaction.Transition) error {
	for _, in := range tx.Inputs {
		local, err := s.Ledger.StateByRef(ctx, in.Ref)
		if errors2.HasCause(err, driver.ErrStateNotFound) {
			if in.State.Participants().Keys().Contains(s.Me.Key) {
				return errors.Wrapf(driver.ErrValidation, "input [%s] is not in the local ledger", in.Ref)
			}
			continue
		}
		if err != nil {
			return errors.Wrapf(driver.ErrInternal, "failed looking up [%s]: %s", in.Ref, err)
		}
		same, err := sameState(local.State, in.State)
		if err != nil {
			return errors.Wrap(driver.ErrInternal, err.Error())
		}
		if !same {
			return errors.Wrapf(driver.ErrValidation, "input [%s] does not match the local ledger", in.Ref)
		}
	}
	return nil
}

func sameState(a, b states.LedgerState) (bool, error) {
	ea, err := states.Wrap(a)
	if err != nil {
		return false, err
	}
	eb, err := states.Wrap(b)
	if err != nil {
		return false, err
	}
	return ea.Kind == eb.Kind && bytes.Equal(ea.Data, eb.Data), nil
}
