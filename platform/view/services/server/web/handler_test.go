/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package web_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/server/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type order struct {
	Item     string
	Quantity int
}

func newHandler(t *testing.T) *web.HttpHandler {
	l, err := zap.NewDevelopment()
	require.NoError(t, err)
	return web.NewHttpHandler("/api/", l.Sugar())
}

func TestHttpHandler(t *testing.T) {
	h := newHandler(t)
	h.RegisterURI("/orders/{Shop}", http.MethodPut, func(ctx *web.ReqContext) (interface{}, int) {
		var o order
		if err := json.Unmarshal(ctx.Body, &o); err != nil {
			return err.Error(), http.StatusBadRequest
		}
		items := make([]string, o.Quantity)
		for i := range items {
			items[i] = ctx.Vars["Shop"] + "/" + o.Item
		}
		return items, http.StatusCreated
	})

	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/orders/north", bytes.NewBufferString(`{"Item": "bond", "Quantity": 2}`))
	req.Header.Set("Accept", "text/html;q=0.9, application/json")
	h.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))
	var items []string
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &items))
	assert.Equal(t, []string{"north/bond", "north/bond"}, items)

	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodPut, "/api/orders/north", bytes.NewBufferString(`not json`)))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestHttpHandlerErrors(t *testing.T) {
	h := newHandler(t)
	h.RegisterURI("/missing", http.MethodGet, func(*web.ReqContext) (interface{}, int) {
		return "nothing here", http.StatusNotFound
	})
	h.RegisterURI("/teapot", http.MethodGet, func(*web.ReqContext) (interface{}, int) {
		return 42, http.StatusTeapot
	})

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/missing", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
	var errResp web.ResponseErr
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
	assert.Equal(t, "nothing here", errResp.Reason)

	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/teapot", nil))
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
	assert.Equal(t, http.StatusText(http.StatusTeapot), errResp.Reason)

	resp = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/missing", nil)
	req.Header.Set("Accept", "text/html")
	h.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusNotAcceptable, resp.Code)

	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/missing", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)
}
