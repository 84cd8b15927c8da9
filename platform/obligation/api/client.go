/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package api

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/states"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/metrics/prometheus"
	"github.com/pkg/errors"
)

// ClientConfig models the configuration of a Client
type ClientConfig struct {
	// Host to connect to
	Host string
	// CACertRaw is the certificate authority's certificates
	CACertRaw []byte
	// CACertPath is the Certificate Authority Cert Path
	CACertPath string
}

func (c *ClientConfig) tlsEnabled() bool {
	return len(c.CACertPath) != 0 || len(c.CACertRaw) != 0
}

// StatusError is returned when a party answers with a non 2xx status
type StatusError struct {
	Code   int
	Reason string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status [%d]: %s", e.Code, e.Reason)
}

// Client calls the REST API of a party
type Client struct {
	c   *http.Client
	url string
}

func NewClient(config *ClientConfig) (*Client, error) {
	protocol := "http"
	transport := &http.Transport{}
	if config.tlsEnabled() {
		caCert := config.CACertRaw
		if len(config.CACertPath) != 0 {
			var err error
			caCert, err = os.ReadFile(config.CACertPath)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to open ca cert")
			}
		}
		rootCAs := x509.NewCertPool()
		if !rootCAs.AppendCertsFromPEM(caCert) {
			return nil, errors.New("no certificate found in ca cert")
		}
		transport.TLSClientConfig = &tls.Config{RootCAs: rootCAs}
		protocol = "https"
	}
	return &Client{
		c:   &http.Client{Transport: transport},
		url: fmt.Sprintf("%s://%s", protocol, config.Host),
	}, nil
}

func (c *Client) Me() (string, error) {
	var res map[string]string
	if err := c.call(http.MethodGet, "/me", nil, &res); err != nil {
		return "", err
	}
	return res["me"], nil
}

func (c *Client) Peers() ([]string, error) {
	var res map[string][]string
	if err := c.call(http.MethodGet, "/peers", nil, &res); err != nil {
		return nil, err
	}
	return res["peers"], nil
}

func (c *Client) IOUs() ([]states.StateAndRef, error) {
	var res []states.StateAndRef
	return res, c.call(http.MethodGet, "/ious", nil, &res)
}

func (c *Client) CorporateActions() ([]states.StateAndRef, error) {
	var res []states.StateAndRef
	return res, c.call(http.MethodGet, "/corporate-actions", nil, &res)
}

// IssueIOU lends amount major units of currency to borrower
func (c *Client) IssueIOU(amount int64, currency, borrower string) (*Committed, error) {
	return c.command(http.MethodPut, "/issue-iou", url.Values{
		"amount":   {strconv.FormatInt(amount, 10)},
		"currency": {currency},
		"party":    {borrower},
	})
}

func (c *Client) TransferIOU(linearID, newLender string) (*Committed, error) {
	return c.command(http.MethodGet, "/transfer-iou", url.Values{"id": {linearID}, "party": {newLender}})
}

func (c *Client) SettleIOU(linearID string, amount int64, currency string) (*Committed, error) {
	return c.command(http.MethodGet, "/settle-iou", url.Values{
		"id":       {linearID},
		"amount":   {strconv.FormatInt(amount, 10)},
		"currency": {currency},
	})
}

// OfferCorporateAction offers to investor a corporate action paying profit, a decimal fraction
func (c *Client) OfferCorporateAction(currency, profit, investor string) (*Committed, error) {
	return c.command(http.MethodPut, "/offer-ca", url.Values{
		"currency": {currency},
		"profit":   {profit},
		"party":    {investor},
	})
}

func (c *Client) InvestInCorporateAction(linearID string, amount int64, currency string) (*Committed, error) {
	return c.command(http.MethodGet, "/invest-ca", url.Values{
		"id":       {linearID},
		"amount":   {strconv.FormatInt(amount, 10)},
		"currency": {currency},
	})
}

func (c *Client) OpenCorporateAction(linearID string) (*Committed, error) {
	return c.command(http.MethodGet, "/open-ca", url.Values{"id": {linearID}})
}

func (c *Client) CloseCorporateAction(linearID string) (*Closed, error) {
	res := &Closed{}
	if err := c.call(http.MethodGet, "/close-ca", url.Values{"id": {linearID}}, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Metrics returns the metrics the party exposes
func (c *Client) Metrics() (prometheus.Samples, error) {
	buff, err := c.req(http.MethodGet, c.url+"/metrics")
	if err != nil {
		return nil, errors.Wrapf(err, "failed calling metrics")
	}
	return prometheus.ReadAll(bytes.NewBuffer(buff))
}

func (c *Client) command(method, path string, query url.Values) (*Committed, error) {
	res := &Committed{}
	if err := c.call(method, path, query, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) call(method, path string, query url.Values, out interface{}) error {
	u := c.url + Prefix + path
	if len(query) != 0 {
		u += "?" + query.Encode()
	}
	buff, err := c.req(method, u)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(buff, out); err != nil {
		return errors.Wrapf(err, "failed to unmarshal response from [%s], response [%s]", u, string(buff))
	}
	return nil
}

func (c *Client) req(method, url string) ([]byte, error) {
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create http request to [%s]", url)
	}
	logger.Debugf("send http request to [%s]", url)

	resp, err := c.c.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to process http request to [%s]", url)
	}
	defer resp.Body.Close()
	buff, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read response from http request to [%s]", url)
	}
	if resp.StatusCode/100 != 2 {
		reason := struct {
			Reason string `json:"reason"`
		}{}
		if err := json.Unmarshal(buff, &reason); err != nil || len(reason.Reason) == 0 {
			reason.Reason = resp.Status
		}
		return nil, &StatusError{Code: resp.StatusCode, Reason: reason.Reason}
	}
	return buff, nil
}
