// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/chasewhiterabbit/internal/config"
	"github.com/tomtom215/chasewhiterabbit/internal/middleware"
)

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler  *Handler
	audit    AuditLogger
	security config.SecurityConfig
	authn    Authenticator
}

// NewRouter creates a Router. A nil authn uses StubAuthenticator.
func NewRouter(security config.SecurityConfig, handler *Handler, logger AuditLogger, authn Authenticator) *Router {
	if authn == nil {
		authn = StubAuthenticator
	}
	return &Router{handler: handler, audit: logger, security: security, authn: authn}
}

// Setup builds the mux.
func (router *Router) Setup() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(router.security.CORSOrigins)) // global so OPTIONS preflight is answered

	r.Get("/health", router.handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/audit", func(r chi.Router) {
		r.Use(RateLimit(router.security.RateLimitRequests, router.security.RateLimitWindow, router.audit))
		r.Use(APISecurityHeaders)
		r.Use(middleware.PrometheusMetrics)
		r.Use(RequireAuth(router.authn))
		r.Use(AccessAudit(router.audit))
		r.Use(RequireAuditPermission(router.audit))

		r.Get("/events", router.handler.ListEvents)
		r.Get("/trail/{audit_id}", router.handler.GetTrail)
		r.Get("/statistics", router.handler.Statistics)
		r.Get("/compliance/soc2", router.handler.SOC2Report)
		r.Get("/compliance/iso27001", router.handler.ISO27001Report)
		r.Get("/types", router.handler.Types)
		r.Get("/export", router.handler.Export)
	})

	return r
}
