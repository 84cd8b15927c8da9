/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package obligations_test

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/hyperledger-labs/fsc-obligations/integration/obligations"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/api"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/contract"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("EndToEnd", func() {
	Describe("Obligations With In-Memory Notary", Label("T1"), func() {
		s := NewTestSuite(func() *obligations.Topology {
			return &obligations.Topology{Parties: []string{"alice", "bob", "charlie"}}
		})
		BeforeEach(s.Setup)
		AfterEach(s.TearDown)
		It("issues, transfers and settles an IOU", s.TestIOULifeCycle)
		It("runs a corporate action round", s.TestCorporateAction)
		It("rejects violations", s.TestViolations)
		It("commits at most once per consumed state", s.TestRace)
	})

	Describe("Obligations With SQLite Notary", Label("T2"), func() {
		s := NewTestSuite(func() *obligations.Topology {
			return &obligations.Topology{
				Parties:          []string{"alice", "bob", "charlie"},
				NotaryDataSource: fmt.Sprintf("file:%s", filepath.Join(GinkgoT().TempDir(), "notary.db")),
			}
		})
		BeforeEach(s.Setup)
		AfterEach(s.TearDown)
		It("issues, transfers and settles an IOU", s.TestIOULifeCycle)
		It("commits at most once per consumed state", s.TestRace)
	})
})

type TestSuite struct {
	topology func() *obligations.Topology
	n        *obligations.Network
}

func NewTestSuite(topology func() *obligations.Topology) *TestSuite {
	return &TestSuite{topology: topology}
}

func (s *TestSuite) Setup() {
	n, err := obligations.Start(context.Background(), s.topology())
	Expect(err).NotTo(HaveOccurred())
	s.n = n
}

func (s *TestSuite) TearDown() {
	if s.n != nil {
		s.n.Stop()
	}
}

func (s *TestSuite) TestIOULifeCycle() {
	peers, err := s.n.Client("alice").Peers()
	Expect(err).NotTo(HaveOccurred())
	Expect(peers).To(ConsistOf("bob", "charlie"))

	linearID := obligations.IssueIOU(s.n, "alice", 99, "bob")
	obligations.CheckIOU(s.n, "alice", linearID, "alice", 9900)
	obligations.CheckIOU(s.n, "bob", linearID, "alice", 9900)

	_, err = s.n.Client("alice").TransferIOU(linearID, "charlie")
	Expect(err).NotTo(HaveOccurred())
	obligations.CheckIOU(s.n, "charlie", linearID, "charlie", 9900)
	obligations.CheckIOU(s.n, "bob", linearID, "charlie", 9900)
	obligations.CheckNoIOU(s.n, "alice", linearID)

	_, err = s.n.Client("bob").SettleIOU(linearID, 40, "GBP")
	Expect(err).NotTo(HaveOccurred())
	obligations.CheckIOU(s.n, "charlie", linearID, "charlie", 5900)

	res, err := s.n.Client("bob").SettleIOU(linearID, 59, "GBP")
	Expect(err).NotTo(HaveOccurred())
	Expect(res.Outputs).To(BeEmpty())
	obligations.CheckNoIOU(s.n, "bob", linearID)
	obligations.CheckNoIOU(s.n, "charlie", linearID)

	obligations.CheckCommitted(s.n, "alice", "Issue", "initiator", 1)
	obligations.CheckCommitted(s.n, "bob", "Issue", "responder", 1)
	obligations.CheckCommitted(s.n, "bob", "Settle", "initiator", 2)
}

func (s *TestSuite) TestCorporateAction() {
	res, err := s.n.Client("alice").OfferCorporateAction("GBP", "0.05", "bob")
	Expect(err).NotTo(HaveOccurred())
	linearID := res.Outputs[0].State.ID()
	obligations.CheckInvestment(s.n, "bob", linearID, "bob", 0)

	_, err = s.n.Client("bob").InvestInCorporateAction(linearID, 500, "GBP")
	Expect(err).NotTo(HaveOccurred())
	obligations.CheckInvestment(s.n, "alice", linearID, "bob", 50000)

	_, err = s.n.Client("alice").OpenCorporateAction(linearID)
	Expect(err).NotTo(HaveOccurred())
	obligations.CheckInvestable(s.n, "bob", linearID, false)

	_, err = s.n.Client("bob").InvestInCorporateAction(linearID, 100, "GBP")
	obligations.ExpectStatus(err, http.StatusBadRequest)

	closed, err := s.n.Client("alice").CloseCorporateAction(linearID)
	Expect(err).NotTo(HaveOccurred())
	Expect(closed.Total).To(Equal("25.00 GBP"))
	Expect(closed.Dividends).To(Equal([]api.Dividend{{Investor: "bob", Amount: "25.00 GBP"}}))

	Eventually(func() bool {
		_, ok := obligations.CorporateAction(s.n, "bob", linearID)
		return ok
	}, 10*time.Second, 20*time.Millisecond).Should(BeFalse())
}

func (s *TestSuite) TestViolations() {
	res, err := s.n.Client("alice").OfferCorporateAction("GBP", "0.05", "bob")
	Expect(err).NotTo(HaveOccurred())
	linearID := res.Outputs[0].State.ID()

	// only the investor may increase its own investment
	_, err = s.n.Client("alice").InvestInCorporateAction(linearID, 500, "GBP")
	obligations.ExpectStatus(err, http.StatusBadRequest)
	Expect(err.Error()).To(ContainSubstring(contract.ReasonOnlyInvestorMayInvest))
	// charlie is not part of the corporate action
	_, err = s.n.Client("charlie").InvestInCorporateAction(linearID, 500, "GBP")
	obligations.ExpectStatus(err, http.StatusNotFound)

	_, err = s.n.Client("alice").IssueIOU(-5, "GBP", "bob")
	obligations.ExpectStatus(err, http.StatusBadRequest)
	_, err = s.n.Client("alice").IssueIOU(5, "GBP", "alice")
	obligations.ExpectStatus(err, http.StatusBadRequest)
	_, err = s.n.Client("alice").IssueIOU(5, "GBP", "dave")
	obligations.ExpectStatus(err, http.StatusBadRequest)
	_, err = s.n.Client("alice").SettleIOU("missing", 5, "GBP")
	obligations.ExpectStatus(err, http.StatusNotFound)
}

func (s *TestSuite) TestRace() {
	linearID := obligations.IssueIOU(s.n, "alice", 99, "bob")
	obligations.CheckIOU(s.n, "bob", linearID, "alice", 9900)

	const attempts = 4
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer GinkgoRecover()
			defer wg.Done()
			_, errs[i] = s.n.Client("bob").SettleIOU(linearID, 10, "GBP")
		}(i)
	}
	wg.Wait()

	settled := 0
	for _, err := range errs {
		if err == nil {
			settled++
			continue
		}
		obligations.ExpectStatus(err, http.StatusConflict)
	}
	Expect(settled).To(BeNumerically(">=", 1))
	obligations.CheckIOU(s.n, "alice", linearID, "alice", int64(9900-settled*1000))
	obligations.CheckIOU(s.n, "bob", linearID, "alice", int64(9900-settled*1000))
}
