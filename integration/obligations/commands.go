/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package obligations

import (
	"time"

	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/api"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/states"
	"github.com/onsi/gomega"
)

const (
	eventually = 10 * time.Second
	polling    = 20 * time.Millisecond
)

// IssueIOU has lender lend amount GBP to borrower and returns the linear id of the IOU
func IssueIOU(n *Network, lender string, amount int64, borrower string) string {
	res, err := n.Client(lender).IssueIOU(amount, "GBP", borrower)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	gomega.Expect(res.Outputs).To(gomega.HaveLen(1))
	return res.Outputs[0].State.ID()
}

// IOU returns the unconsumed IOU linearID as party sees it
func IOU(n *Network, party, linearID string) (states.IOU, bool) {
	ious, err := n.Client(party).IOUs()
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	for _, s := range ious {
		if iou, ok := s.State.(states.IOU); ok && iou.LinearID == linearID {
			return iou, true
		}
	}
	return states.IOU{}, false
}

// CheckIOU waits until party sees linearID with remaining minor units left to pay and lent by lender
func CheckIOU(n *Network, party, linearID, lender string, remaining int64) {
	gomega.Eventually(func() []interface{} {
		iou, ok := IOU(n, party, linearID)
		return []interface{}{ok, iou.Lender.Name, iou.Remaining().Quantity}
	}, eventually, polling).Should(gomega.Equal([]interface{}{true, lender, remaining}))
}

// CheckNoIOU waits until party holds no unconsumed state for linearID
func CheckNoIOU(n *Network, party, linearID string) {
	gomega.Eventually(func() bool {
		_, ok := IOU(n, party, linearID)
		return ok
	}, eventually, polling).Should(gomega.BeFalse())
}

// CorporateAction returns the unconsumed corporate action linearID as party sees it
func CorporateAction(n *Network, party, linearID string) (states.CorporateAction, bool) {
	cas, err := n.Client(party).CorporateActions()
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	for _, s := range cas {
		if ca, ok := s.State.(states.CorporateAction); ok && ca.LinearID == linearID {
			return ca, true
		}
	}
	return states.CorporateAction{}, false
}

// CheckInvestment waits until party sees investor holding amount minor units in linearID
func CheckInvestment(n *Network, party, linearID, investor string, amount int64) {
	gomega.Eventually(func() int64 {
		ca, ok := CorporateAction(n, party, linearID)
		if !ok {
			return -1
		}
		for _, inv := range ca.Investments {
			if inv.Investor.Name == investor {
				return inv.Amount.Quantity
			}
		}
		return -1
	}, eventually, polling).Should(gomega.Equal(amount))
}

// CheckInvestable waits until party sees linearID with the passed investable flag
func CheckInvestable(n *Network, party, linearID string, investable bool) {
	gomega.Eventually(func() []bool {
		ca, ok := CorporateAction(n, party, linearID)
		return []bool{ok, ca.Investable}
	}, eventually, polling).Should(gomega.Equal([]bool{true, investable}))
}

// CheckCommitted waits until party reports value for the committed counter of action in role
func CheckCommitted(n *Network, party, action, role string, value float64) {
	gomega.Eventually(func() float64 {
		metrics, err := n.Client(party).Metrics()
		if err != nil {
			return -1
		}
		for _, m := range metrics["obligations_commit_committed"] {
			if m.Labels["action"] == action && m.Labels["role"] == role {
				return m.Value
			}
		}
		return 0
	}, eventually, polling).Should(gomega.Equal(value))
}

// ExpectStatus asserts err is a StatusError with the passed code
func ExpectStatus(err error, code int) {
	gomega.Expect(err).To(gomega.HaveOccurred())
	statusErr, ok := err.(*api.StatusError)
	gomega.Expect(ok).To(gomega.BeTrue(), err.Error())
	gomega.Expect(statusErr.Code).To(gomega.Equal(code), statusErr.Reason)
}
