// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// ApiConfig holds configuration for the REST API server.
type ApiConfig struct {
	ListenAddress string
}

// Api is the REST API server for collection and treasury operations.
type Api struct {
	config     ApiConfig
	logger     *slog.Logger
	engine     ApiEngine
	httpServer *http.Server
	mu         sync.Mutex
}

// New creates a new API server instance.
func New(
	cfg ApiConfig,
	engine ApiEngine,
	logger *slog.Logger,
) *Api {
	if logger == nil {
		logger = slog.New(
			slog.NewJSONHandler(io.Discard, nil),
		)
	}
	logger = logger.With("component", "api")
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":3000"
	}
	return &Api{
		config: cfg,
		logger: logger,
		engine: engine,
	}
}

// Start starts the HTTP server in a background goroutine.
func (a *Api) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.httpServer != nil {
		a.mu.Unlock()
		return errors.New("server already started")
	}

	server := &http.Server{
		Addr:              a.config.ListenAddress,
		Handler:           a.routes(),
		ReadHeaderTimeout: 60 * time.Second,
	}
	a.httpServer = server
	a.mu.Unlock()

	// Start the server with deterministic error detection
	if err := a.startServer(server); err != nil {
		a.mu.Lock()
		a.httpServer = nil
		a.mu.Unlock()
		return err
	}

	a.logger.Info(
		"API listener started on " + a.config.ListenAddress,
	)

	// Monitor context for cancellation
	go func() {
		<-ctx.Done()
		a.mu.Lock()
		srv := a.httpServer
		a.httpServer = nil
		a.mu.Unlock()

		if srv != nil {
			a.logger.Debug(
				"context cancelled, shutting down API server",
			)
			//nolint:contextcheck
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(),
				30*time.Second,
			)
			defer cancel()
			//nolint:contextcheck
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error(
					"failed to shutdown API server on context cancellation",
					"error", err,
				)
			}
		}
	}()

	return nil
}

func (a *Api) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", a.handleRoot)
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc(
		"POST /api/v1/collections",
		a.handleCreateCollection,
	)
	mux.HandleFunc(
		"GET /api/v1/collections",
		a.handleListCollections,
	)
	mux.HandleFunc(
		"GET /api/v1/collections/{id}",
		a.handleGetCollection,
	)
	mux.HandleFunc(
		"POST /api/v1/collections/{id}/mint",
		a.handleMint,
	)
	mux.HandleFunc(
		"POST /api/v1/collections/{id}/update",
		a.handleUpdateCollection,
	)
	mux.HandleFunc(
		"POST /api/v1/collections/{id}/failsafe",
		a.handleFailSafe,
	)
	mux.HandleFunc(
		"POST /api/v1/collections/{id}/roles",
		a.handleUpdateRole,
	)
	mux.HandleFunc(
		"POST /api/v1/collections/{id}/allowlist/add",
		a.handleAllowListAdd,
	)
	mux.HandleFunc(
		"POST /api/v1/collections/{id}/allowlist/remove",
		a.handleAllowListRemove,
	)
	mux.HandleFunc(
		"GET /api/v1/collections/{id}/allowlist/{address}",
		a.handleAllowListCheck,
	)
	mux.HandleFunc(
		"POST /api/v1/collections/{id}/withdrawals",
		a.handleRequestWithdrawal,
	)
	mux.HandleFunc(
		"POST /api/v1/collections/{id}/withdrawals/execute",
		a.handleExecuteWithdrawal,
	)
	mux.HandleFunc(
		"GET /api/v1/items/{id}",
		a.handleGetItem,
	)
	mux.HandleFunc(
		"POST /api/v1/items/{id}/reveal",
		a.handleReveal,
	)
	mux.HandleFunc(
		"GET /api/v1/capabilities/{id}",
		a.handleCapabilityStatus,
	)
	mux.HandleFunc(
		"POST /api/v1/capabilities/{id}/extend",
		a.handleExtendCapability,
	)
	return mux
}

// Stop gracefully shuts down the HTTP server.
func (a *Api) Stop(ctx context.Context) error {
	a.mu.Lock()
	srv := a.httpServer
	a.httpServer = nil
	a.mu.Unlock()

	if srv != nil {
		a.logger.Debug("shutting down API server")
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf(
				"failed to shutdown API server: %w",
				err,
			)
		}
	}
	return nil
}

// startServer binds the listening socket first so port conflicts are
// detected immediately, then serves in a background goroutine.
func (a *Api) startServer(server *http.Server) error {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf(
			"failed to listen for API server: %w",
			err,
		)
	}
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			a.logger.Error(
				"API server error",
				"error", err,
			)
		}
	}()
	return nil
}
