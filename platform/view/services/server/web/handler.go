/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package web

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

const jsonContentType = "application/json"

// ResponseErr is the body of every non 2xx answer
type ResponseErr struct {
	Reason string `json:"reason"`
}

type logger interface {
	Debugf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

// ReqContext is what a HandlerFunc gets of the request
type ReqContext struct {
	Req  *http.Request
	Vars map[string]string
	Body []byte
}

// HandlerFunc answers a request with a value encoded as JSON and a status code.
// A non 2xx answer whose value is a string uses it as the reason.
type HandlerFunc func(*ReqContext) (interface{}, int)

// HttpHandler routes JSON endpoints living under a common prefix
type HttpHandler struct {
	prefix string
	r      *mux.Router
	logger logger
}

func NewHttpHandler(prefix string, l logger) *HttpHandler {
	h := &HttpHandler{prefix: strings.TrimSuffix(prefix, "/"), r: mux.NewRouter(), logger: l}
	h.r.Use(h.logRequests)
	return h
}

func (h *HttpHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.r.ServeHTTP(w, req)
}

// RegisterURI serves prefix+uri for method with f
func (h *HttpHandler) RegisterURI(uri string, method string, f HandlerFunc) {
	h.r.HandleFunc(h.prefix+uri, func(w http.ResponseWriter, req *http.Request) {
		h.serve(w, req, f)
	}).Methods(method)
}

// RegisterHandler serves path, outside of the prefix, with a plain http.Handler
func (h *HttpHandler) RegisterHandler(path string, handler http.Handler) {
	h.r.Handle(path, handler)
}

func (h *HttpHandler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, req)
		h.logger.Debugf("%s %s served in %s", req.Method, req.URL, time.Since(start))
	})
}

func (h *HttpHandler) serve(w http.ResponseWriter, req *http.Request, f HandlerFunc) {
	if !acceptsJSON(req.Header.Get("Accept")) {
		h.reply(w, http.StatusNotAcceptable, &ResponseErr{Reason: "only " + jsonContentType + " is served"})
		return
	}
	body, err := io.ReadAll(req.Body)
	if err != nil {
		h.logger.Warnf("failed reading request body: %s", err)
		h.reply(w, http.StatusBadRequest, &ResponseErr{Reason: "failed reading request"})
		return
	}

	res, status := f(&ReqContext{Req: req, Vars: mux.Vars(req), Body: body})
	if status/100 != 2 {
		reason, ok := res.(string)
		if !ok {
			reason = http.StatusText(status)
		}
		h.reply(w, status, &ResponseErr{Reason: reason})
		return
	}
	h.reply(w, status, res)
}

func (h *HttpHandler) reply(w http.ResponseWriter, status int, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		h.logger.Warnf("failed encoding response: %s", err)
		status, raw = http.StatusInternalServerError, []byte(`{"reason":"failed encoding response"}`)
	}
	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(status)
	if _, err := w.Write(append(raw, '\n')); err != nil {
		h.logger.Warnf("failed writing response: %s", err)
	}
}

func acceptsJSON(accept string) bool {
	if len(accept) == 0 {
		return true
	}
	for _, option := range strings.Split(accept, ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(option))
		if err != nil {
			continue
		}
		switch mediaType {
		case jsonContentType, "application/*", "*/*":
			return true
		}
	}
	return false
}
