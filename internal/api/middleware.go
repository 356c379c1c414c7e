// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package api

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/chasewhiterabbit/internal/audit"
	"github.com/tomtom215/chasewhiterabbit/internal/logging"
)

// AuditorRole grants access to the audit routes.
const AuditorRole = "auditor"

// Principal is the authenticated caller.
type Principal struct {
	ID    string
	Email string
	Roles []string
}

// HasRole reports whether p holds role.
func (p *Principal) HasRole(role string) bool {
	return p != nil && slices.Contains(p.Roles, role)
}

// AuditUser is the user object recorded in audit entries.
func (p *Principal) AuditUser() audit.Fields {
	if p == nil {
		return audit.User("anonymous", "")
	}
	return audit.User(p.ID, p.Email)
}

type principalKey struct{}

// ContextWithPrincipal stores p in ctx.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return logging.ContextWithPrincipal(context.WithValue(ctx, principalKey{}, p), p.ID)
}

// PrincipalFromContext returns the caller stored by RequireAuth.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}

// Authenticator resolves the caller of r, or returns nil.
type Authenticator func(r *http.Request) *Principal

// StubAuthenticator admits every request as the built-in administrator.
// It stands in until the service gains real authentication.
func StubAuthenticator(*http.Request) *Principal {
	return &Principal{
		ID:    "admin-user",
		Email: "admin@chasewhiterabbit.com",
		Roles: []string{"admin", AuditorRole},
	}
}

// RequireAuth rejects requests authn cannot resolve with 401.
func RequireAuth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := authn(r)
			if p == nil {
				NewResponseWriter(w, r).Error(http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required")
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
		})
	}
}

// RequireAuditPermission rejects callers without the auditor role with 403
// and records an authz.access.denied entry.
func RequireAuditPermission(logger AuditLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if !p.HasRole(AuditorRole) {
				logger.LogEvent(r.Context(), audit.EventAccessDenied, audit.Context{
					User:     p.AuditUser(),
					Request:  audit.Request(audit.ClientIP(r), r.UserAgent()),
					Resource: audit.Resource("audit_endpoint", r.URL.Path),
					Outcome:  audit.OutcomeDenied,
					Details:  audit.Fields{"reason": "insufficient_permissions"},
				})
				NewResponseWriter(w, r).Error(http.StatusForbidden, ErrCodeAccessDenied, "Insufficient permissions to access audit data")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AccessAudit records an api.request entry for every request once it
// completes. Reads of the trail itself (/events, /trail) additionally record
// a compliance.audit.start entry naming the caller and query.
func AccessAudit(logger AuditLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			user := PrincipalFromContext(r.Context()).AuditUser()
			logger.LogAPIRequest(r.Context(), r, status, time.Since(start), user)

			if strings.Contains(r.URL.Path, "/trail") || strings.Contains(r.URL.Path, "/events") {
				outcome := audit.OutcomeSuccess
				if status >= http.StatusBadRequest {
					outcome = audit.OutcomeFailure
				}
				req := audit.Request(audit.ClientIP(r), r.UserAgent())
				req["endpoint"] = r.URL.Path
				logger.LogEvent(r.Context(), audit.EventComplianceAuditStart, audit.Context{
					User:    user,
					Request: req,
					Outcome: outcome,
					Details: audit.Fields{
						"query_parameters": queryFields(r),
						"response_code":    status,
					},
				})
			}
		})
	}
}

func queryFields(r *http.Request) audit.Fields {
	out := audit.Fields{}
	for k, v := range r.URL.Query() {
		if len(v) == 1 {
			out[k] = v[0]
		} else {
			out[k] = append([]string(nil), v...)
		}
	}
	return out
}

// RateLimit limits each client IP to requests per window. Rejections are
// answered with 429 and recorded as api.rate_limit.exceeded entries.
func RateLimit(requests int, window time.Duration, logger AuditLogger) func(http.Handler) http.Handler {
	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			logger.LogEvent(r.Context(), audit.EventRateLimitExceeded, audit.Context{
				Request: audit.Request(audit.ClientIP(r), r.UserAgent()),
				Outcome: audit.OutcomeBlocked,
				Details: audit.Fields{"endpoint": r.URL.Path, "limit": requests, "window": window.String()},
			})
			NewResponseWriter(w, r).Error(http.StatusTooManyRequests, ErrCodeRateLimited,
				"Too many audit requests from this IP, please try again later.")
		}),
	)
}

// CORS returns the go-chi/cors handler for origins.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}

// APISecurityHeaders marks responses as non-cacheable, non-sniffable and
// non-frameable.
func APISecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Cache-Control", "no-store")
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}
