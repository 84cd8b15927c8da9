/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/logging"
	"github.com/pkg/errors"
)

var webLogger = logging.MustGetLogger("view-sdk.server.web")

const shutdownTimeout = 5 * time.Second

// Server serves an http.Handler on a TCP address
type Server struct {
	address string
	server  *http.Server
	lis     net.Listener
}

func NewServer(address string, handler http.Handler) *Server {
	return &Server{
		address: address,
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start listens on the configured address and serves in the background
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return errors.Wrapf(err, "failed listening on [%s]", s.address)
	}
	s.lis = lis
	go func() {
		if err := s.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			webLogger.Errorf("web server on [%s] failed: %s", s.Addr(), err)
		}
	}()
	webLogger.Infof("web server listening on [%s]", s.Addr())
	return nil
}

// Addr returns the address the server listens on, the configured one before Start
func (s *Server) Addr() string {
	if s.lis == nil {
		return s.address
	}
	return s.lis.Addr().String()
}

func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}
