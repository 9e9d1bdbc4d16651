// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Greatwyrm Contributors

// Package web is the HTTP collaborator layer over the auth core:
// routing, cookie transport, and the translation of core outcomes into
// status codes. No authorization decision is made here; the core's
// three-way outcome (valid / invalid / failure) maps onto 2xx / 401 /
// 500.
package web

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/greatwyrm/greatwyrm/internal/auth"
	"github.com/greatwyrm/greatwyrm/internal/observability"
)

// TokenCookieName is the name of the login token cookie.
const TokenCookieName = "login-token"

// ServerConfig wires the Server's collaborators.
type ServerConfig struct {
	Auth    *auth.Service
	Sealer  *Sealer
	Metrics *observability.Metrics // optional
	Logger  *slog.Logger           // optional, defaults to slog.Default
	Version string
}

// Server is the HTTP front of the game server. It is immutable after
// construction and shared across concurrently handled requests.
type Server struct {
	echo    *echo.Echo
	auth    *auth.Service
	sealer  *Sealer
	metrics *observability.Metrics
	logger  *slog.Logger
	version string
}

// NewServer builds the HTTP server and registers all routes.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Auth == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if cfg.Sealer == nil {
		return nil, oops.Errorf("cookie sealer is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return ulid.Make().String() },
	}))
	e.Use(middleware.Recover())

	s := &Server{
		echo:    e,
		auth:    cfg.Auth,
		sealer:  cfg.Sealer,
		metrics: cfg.Metrics,
		logger:  logger,
		version: cfg.Version,
	}

	v1 := e.Group("/v1")
	v1.GET("/version", s.handleVersion)
	v1.POST("/auth/login", s.handleLogin)
	v1.POST("/auth/logout", s.handleLogout)

	authed := v1.Group("", s.RequireAuth())
	authed.GET("/auth/whoami", s.handleWhoami)

	return s, nil
}

// Echo exposes the underlying router, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start serves HTTP on addr and blocks until the server stops.
func (s *Server) Start(addr string) error {
	if err := s.echo.Start(addr); err != nil {
		return oops.Code("WEB_SERVE_FAILED").With("addr", addr).Wrap(err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return oops.Code("WEB_SHUTDOWN_FAILED").Wrap(err)
	}
	return nil
}
