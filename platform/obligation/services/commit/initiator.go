/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package commit

import (
	"context"
	"fmt"
	"strings"
	"time"

	errors2 "github.com/hyperledger-labs/fsc-obligations/pkg/utils/errors"
	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/identity"
	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/logging"
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
	"golang.org/x/sync/errgroup"
)

var logger = logging.MustGetLogger("obligations.commit")

type counterparty struct {
	party   states.Party
	session view.Session
}

// CommitView drives a transition through the commit protocol on behalf of the initiating party.
// It returns the *driver.FinalizedTransaction on success, an *Abort otherwise.
type CommitView struct {
	tx *transaction.Transition
}

func NewCommitView(tx *transaction.Transition) *CommitView {
	return &CommitView{tx: tx}
}

func (c *CommitView) Call(ctx view.Context) (interface{}, error) {
	s, err := GetServices(ctx)
	if err != nil {
		return nil, abort(Init, errors.Wrap(driver.ErrInternal, err.Error()))
	}
	if c.tx == nil {
		return nil, abort(Init, errors.Wrap(driver.ErrInternal, "missing transition"))
	}

	start := time.Now()
	action := string(c.tx.Command.Action)
	final, err := c.commit(ctx, s)
	s.Metrics.observe(action, initiatorRole, start, err)
	if err != nil {
		logger.Warnf("[%s] commit of [%s] failed: %s", s.Me, action, err)
		return nil, err
	}
	logger.Infof("[%s] committed [%s:%s]", s.Me, action, final.ID)
	return final, nil
}

func (c *CommitView) commit(ctx view.Context, s *Services) (*driver.FinalizedTransaction, error) {
	tx := c.tx
	txID, err := tx.ID()
	if err != nil {
		return nil, abort(Init, errors.Wrap(driver.ErrInternal, err.Error()))
	}
	spanCtx, span := ctx.StartSpanFrom(ctx.Context(), "commit", tracing.WithAttributes(
		tracing.String("tx_id", txID),
		tracing.String("action", string(tx.Command.Action)),
	), trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.AddEvent(LocalValidate.String())
	if verdict := contract.Validate(tx); !verdict.OK {
		return nil, abort(LocalValidate, verdict.Err())
	}
	if !tx.RequiredSigners.Contains(s.Me.Key) {
		return nil, abort(LocalValidate, errors.Wrapf(driver.ErrInvalidParty, "[%s] is not a required signer", s.Me))
	}

	span.AddEvent(SignLocal.String())
	content, err := tx.Content()
	if err != nil {
		return nil, abort(SignLocal, errors.Wrap(driver.ErrInternal, err.Error()))
	}
	signed := &transaction.SignedTransition{Transition: tx}
	for _, id := range tx.RequiredSigners {
		if !s.Signer.IsMe(id) {
			continue
		}
		sigma, err := s.Signer.Sign(id, content)
		if err != nil {
			return nil, abort(SignLocal, errors.Wrapf(driver.ErrInternal, "failed signing [%s]: %s", txID, err))
		}
		signed.AddSignature(transaction.Signature{Signer: id, Bytes: sigma})
	}

	span.AddEvent(Distribute.String())
	proposal := &Proposal{Transition: tx, Disclosures: tx.Participants()}
	if raw, err := tracing.MarshalContext(trace.SpanContextFromContext(spanCtx)); err == nil {
		proposal.TraceContext = raw
	}
	counterparties, err := c.distribute(ctx, spanCtx, s, signed.Missing(), proposal)
	fail := func(phase Phase, err error) error {
		a := abort(phase, err)
		c.notify(spanCtx, s, counterparties, &Outcome{TxID: txID, Reason: a.Error()})
		return a
	}
	if err != nil {
		return nil, fail(Distribute, err)
	}

	span.AddEvent(AwaitSignatures.String())
	signatures, err := c.await(spanCtx, s, content, counterparties)
	if err != nil {
		return nil, fail(AwaitSignatures, err)
	}
	for _, sig := range signatures {
		signed.AddSignature(sig)
	}
	if missing := signed.Missing(); len(missing) != 0 {
		return nil, fail(AwaitSignatures, errors.Wrapf(driver.ErrSignature, "missing signatures of [%v]", missing))
	}

	span.AddEvent(UniquenessCheck.String())
	receipt, err := s.Uniqueness.Submit(spanCtx, &driver.Request{
		TxID:       txID,
		Consumed:   tx.InputRefs(),
		Signatures: signed.Signatures,
	})
	if err != nil {
		return nil, fail(UniquenessCheck, errors.Wrapf(driver.ErrInternal, "uniqueness service failed: %s", err))
	}
	if !receipt.Accepted {
		return nil, fail(UniquenessCheck, errors.Wrapf(driver.ErrConflictingConsumption, "[%s] rejected: %s", txID, conflicts(receipt.Conflicts)))
	}

	span.AddEvent(Finalize.String())
	final := signed.Finalize(txID, receipt)
	recordErr := s.History.Append(spanCtx, final)
	c.notify(spanCtx, s, counterparties, &Outcome{
		Finalized:  true,
		TxID:       txID,
		Signatures: signed.Signatures,
		Timestamp:  receipt.Timestamp,
	})
	c.awaitAcks(spanCtx, s, counterparties, txID)
	if recordErr != nil {
		return nil, &Unrecorded{Transaction: final, Err: errors.Wrapf(driver.ErrInternal, "failed recording [%s]: %s", txID, recordErr)}
	}
	return final, nil
}

// distribute opens a session to every counterparty and sends them the proposal
func (c *CommitView) distribute(ctx view.Context, spanCtx context.Context, s *Services, keys identity.Identities, proposal *Proposal) ([]*counterparty, error) {
	counterparties := make([]*counterparty, len(keys))
	for i, key := range keys {
		party, err := s.Directory.PartyOf(key)
		if err != nil {
			return nil, errors.Wrapf(driver.ErrInvalidParty, "cannot resolve required signer: %s", err)
		}
		counterparties[i] = &counterparty{party: party}
	}

	g := &errgroup.Group{}
	for _, cp := range counterparties {
		cp := cp
		g.Go(func() error {
			sess, err := ctx.GetSession(c, cp.party.Key)
			if err != nil {
				return errors.Wrapf(driver.ErrSession, "cannot reach [%s]: %s", cp.party, err)
			}
			cp.session = sess
			if err := session.Wrap(spanCtx, sess).Send(proposal); err != nil {
				return errors.Wrapf(driver.ErrSession, "failed sending proposal to [%s]: %s", cp.party, err)
			}
			if logger.IsEnabledFor(zapcore.DebugLevel) {
				logger.Debugf("proposal sent to [%s]", cp.party)
			}
			return nil
		})
	}
	return counterparties, g.Wait()
}

// await collects and verifies the replies of the counterparties.
// The first failure cancels the wait for the others.
func (c *CommitView) await(spanCtx context.Context, s *Services, content []byte, counterparties []*counterparty) ([]transaction.Signature, error) {
	signatures := make([]transaction.Signature, len(counterparties))
	g, gctx := errgroup.WithContext(spanCtx)
	for i, cp := range counterparties {
		i, cp := i, cp
		g.Go(func() error {
			reply := &Reply{}
			if err := session.Wrap(gctx, cp.session).ReceiveWithTimeout(reply, s.timeout()); err != nil {
				return receiveError(cp.party, err)
			}
			if len(reply.Violation) != 0 {
				return errors.Wrapf(driver.ErrValidation, "[%s] refused to sign: %s", cp.party, reply.Violation)
			}
			if reply.Signature == nil {
				return errors.Wrapf(driver.ErrSignature, "no signature from [%s]", cp.party)
			}
			if !reply.Signature.Signer.Equal(cp.party.Key) {
				return errors.Wrapf(driver.ErrSignature, "[%s] signed with an unexpected key", cp.party)
			}
			if err := s.Signer.Verify(cp.party.Key, content, reply.Signature.Bytes); err != nil {
				return errors.Wrapf(driver.ErrSignature, "invalid signature from [%s]: %s", cp.party, err)
			}
			signatures[i] = *reply.Signature
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return signatures, nil
}

// notify sends the outcome to every counterparty the proposal reached
func (c *CommitView) notify(ctx context.Context, s *Services, counterparties []*counterparty, outcome *Outcome) {
	for _, cp := range counterparties {
		if cp == nil || cp.session == nil {
			continue
		}
		if err := session.Wrap(ctx, cp.session).Send(outcome); err != nil {
			logger.Warnf("[%s] failed notifying [%s] of outcome of [%s]: %s", s.Me, cp.party, outcome.TxID, err)
		}
	}
}

// awaitAcks waits until every counterparty reports whether it recorded the finalized transaction.
// A counterparty failing to record does not undo the commit.
func (c *CommitView) awaitAcks(ctx context.Context, s *Services, counterparties []*counterparty, txID string) {
	g := &errgroup.Group{}
	for _, cp := range counterparties {
		cp := cp
		g.Go(func() error {
			ack := &Ack{}
			if err := session.Wrap(ctx, cp.session).ReceiveWithTimeout(ack, s.outcomeTimeout()); err != nil {
				logger.Warnf("[%s] no acknowledgement of [%s] from [%s]: %s", s.Me, txID, cp.party, err)
				return nil
			}
			if len(ack.Error) != 0 {
				logger.Warnf("[%s] failed recording [%s]: %s", cp.party, txID, ack.Error)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func receiveError(party states.Party, err error) error {
	if errors2.HasCause(err, session.ErrTimeout) {
		return errors.Wrapf(driver.ErrTimeout, "no answer from [%s]", party)
	}
	return errors.Wrapf(driver.ErrSession, "failed receiving from [%s]: %s", party, err)
}

func conflicts(cs []driver.Conflict) string {
	res := make([]string, len(cs))
	for i, c := range cs {
		res[i] = fmt.Sprintf("[%s] consumed by [%s]", c.Ref, c.TxID)
	}
	return strings.Join(res, ", ")
}
