// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/chasewhiterabbit/internal/audit"
	"github.com/tomtom215/chasewhiterabbit/internal/compliance"
	"github.com/tomtom215/chasewhiterabbit/internal/config"
)

// testEnv serves the audit routes over a trail in a temp directory.
type testEnv struct {
	logger *audit.Logger
	reader *audit.Reader
	mux    http.Handler
}

type envOptions struct {
	authn    Authenticator
	reports  ReportGenerator
	security *config.SecurityConfig
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()

	sink, err := audit.OpenSegmentSink("primary", audit.SegmentConfig{Path: filepath.Join(t.TempDir(), "audit.log")})
	require.NoError(t, err)
	writer := audit.NewWriter(audit.Route{Sink: sink})
	t.Cleanup(func() { _ = writer.Close() })

	builder := audit.NewBuilder(audit.NewMetadata("chasewhiterabbit", "test", "2.1.0"))
	logger := audit.NewLogger(builder, writer, audit.DefaultConfig())
	reader := audit.NewReader(sink)

	reports := opts.reports
	if reports == nil {
		reports = compliance.NewGenerator(reader, logger)
	}
	security := config.SecurityConfig{
		CORSOrigins:       []string{"http://localhost:3000"},
		RateLimitRequests: 50,
		RateLimitWindow:   15 * time.Minute,
	}
	if opts.security != nil {
		security = *opts.security
	}

	handler := NewHandler(logger, reader, reports, "2.1.0")
	return &testEnv{
		logger: logger,
		reader: reader,
		mux:    NewRouter(security, handler, logger, opts.authn).Setup(),
	}
}

// response mirrors APIResponse with the payload left raw.
type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

func (env *testEnv) get(t *testing.T, target string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)

	var resp response
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func (env *testEnv) entries(t *testing.T, eventType audit.EventType) []audit.Entry {
	t.Helper()
	res, err := env.reader.Query(context.Background(), audit.Filter{EventType: eventType})
	require.NoError(t, err)
	return res.Entries
}

func (env *testEnv) seed(t *testing.T, eventType audit.EventType, user string, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for range n {
		e, err := env.logger.Record(context.Background(), eventType, audit.Context{
			User:    audit.User(user, ""),
			Request: audit.Request("198.51.100.7", "dice-client/2.0"),
			Outcome: audit.OutcomeSuccess,
		})
		require.NoError(t, err)
		ids = append(ids, e.AuditID)
	}
	return ids
}

func TestListEvents_FiltersAndPaginates(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, envOptions{})
	env.seed(t, audit.EventDataRead, "player-1", 5)
	env.seed(t, audit.EventDataDelete, "player-2", 2)

	rec, resp := env.get(t, "/api/audit/events?event_type=data.read&limit=2&offset=1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, resp.Success)

	var data struct {
		Events     []audit.Entry  `json:"events"`
		Pagination PaginationMeta `json:"pagination"`
		Filters    map[string]any `json:"filters"`
		Skipped    int            `json:"skipped_records"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))

	assert.Len(t, data.Events, 2)
	for _, e := range data.Events {
		assert.Equal(t, audit.EventDataRead, e.EventType)
	}
	assert.Equal(t, 5, data.Pagination.Total)
	assert.Equal(t, 2, data.Pagination.Count)
	assert.Equal(t, 1, data.Pagination.Offset)
	assert.True(t, data.Pagination.HasMore)
	assert.Equal(t, "data.read", data.Filters["event_type"])
	assert.Zero(t, data.Skipped)

	require.NotNil(t, resp.Meta)
	require.NotNil(t, resp.Meta.Pagination)
	assert.Equal(t, 5, resp.Meta.Pagination.Total)
	assert.NotEmpty(t, resp.Meta.RequestID)
}

func TestListEvents_FilterByUserAndRisk(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, envOptions{})
	env.seed(t, audit.EventDataRead, "player-1", 2)
	env.seed(t, audit.EventDataDelete, "player-1", 1)
	env.seed(t, audit.EventDataDelete, "player-2", 1)

	rec, resp := env.get(t, "/api/audit/events?user_id=player-1&risk_level=high")
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Events []audit.Entry `json:"events"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.Len(t, data.Events, 1)
	assert.Equal(t, audit.EventDataDelete, data.Events[0].EventType)
	assert.Equal(t, "player-1", data.Events[0].UserID())
}

func TestListEvents_FailedLoginIsHighRiskAndSOC2(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, envOptions{})
	env.seed(t, audit.EventLoginSuccess, "u1", 2)

	id := env.logger.LogEvent(context.Background(), audit.EventLoginFailed, audit.Context{
		User:    audit.User("u1", ""),
		Request: audit.Request("1.2.3.4", ""),
		Outcome: audit.OutcomeFailure,
	})
	require.NotEmpty(t, id)

	rec, resp := env.get(t, "/api/audit/events?risk_level=high&event_type=auth.login.failed")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var data struct {
		Events []audit.Entry `json:"events"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.Len(t, data.Events, 1)

	e := data.Events[0]
	assert.Equal(t, id, e.AuditID)
	assert.Equal(t, audit.SeverityError, e.Severity)
	assert.Equal(t, audit.RiskHigh, e.RiskLevel)
	assert.True(t, e.Compliance.SOC2Relevant)
	assert.Equal(t, "u1", e.UserID())
	assert.Equal(t, "1.2.3.4", e.RequestIP())
}

func TestEventsQuery_FilterAppliesRange(t *testing.T) {
	t.Parallel()

	q := EventsQuery{StartDate: "2026-05-01", EndDate: "2026-05-31", RiskLevel: "high"}
	f, err := q.Filter()
	require.NoError(t, err)
	assert.True(t, f.Start.Equal(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)), f.Start.String())
	assert.False(t, f.End.IsZero())
	assert.True(t, f.End.After(time.Date(2026, 5, 31, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, audit.RiskHigh, f.RiskLevel)

	r := RangeQuery{StartDate: "2026-05-10", EndDate: "2026-05-01"}
	_, err = r.Filter()
	require.Error(t, err)
}

func TestListEvents_Validation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, envOptions{})

	tests := []struct {
		name  string
		query string
	}{
		{"limit zero", "limit=0"},
		{"limit too large", "limit=1001"},
		{"limit not a number", "limit=ten"},
		{"negative offset", "offset=-1"},
		{"unknown risk level", "risk_level=extreme"},
		{"malformed start date", "start_date=yesterday"},
		{"reversed range", "start_date=2026-05-10&end_date=2026-05-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := env.get(t, "/api/audit/events?"+tt.query)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, ErrCodeValidationFailed, resp.Error.Code)
		})
	}
}

func TestGetTrail(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, envOptions{})
	ids := env.seed(t, audit.EventDataRead, "player-1", 3)
	env.seed(t, audit.EventDataRead, "someone-else", 1)

	rec, resp := env.get(t, "/api/audit/trail/"+ids[1])
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var data struct {
		Event   audit.Entry   `json:"event"`
		Related []audit.Entry `json:"related_events"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, ids[1], data.Event.AuditID)

	// The seeded entries share a client IP, so every other entry correlates.
	assert.NotEmpty(t, data.Related)
	for _, e := range data.Related {
		assert.NotEqual(t, ids[1], e.AuditID)
	}
}

func TestGetTrail_NotFoundAndInvalid(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, envOptions{})

	rec, resp := env.get(t, "/api/audit/trail/00000000-0000-0000-0000-000000000000")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)

	rec, resp = env.get(t, "/api/audit/trail/short")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidationFailed, resp.Error.Code)
}

func TestStatistics(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, envOptions{})
	env.seed(t, audit.EventLoginSuccess, "player-1", 2)
	env.seed(t, audit.EventDataDelete, "player-1", 1)

	rec, resp := env.get(t, "/api/audit/statistics")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats audit.Stats
	require.NoError(t, json.Unmarshal(resp.Data, &stats))
	assert.EqualValues(t, 3, stats.TotalEvents)
	assert.EqualValues(t, 2, stats.EventsByType["auth.login.success"])
	assert.EqualValues(t, 1, stats.EventsByRiskLevel["high"])

	rec, _ = env.get(t, "/api/audit/statistics?start_date=not-a-date")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestComplianceReports(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, envOptions{})
	env.seed(t, audit.EventLoginSuccess, "player-1", 2)

	today := time.Now().UTC().Format(time.DateOnly)
	rec, resp := env.get(t, "/api/audit/compliance/soc2?start_date=2000-01-01&end_date="+today)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report compliance.Report
	require.NoError(t, json.Unmarshal(resp.Data, &report))
	assert.Equal(t, compliance.ReportSOC2, report.ReportType)
	assert.Equal(t, "admin-user", report.GeneratedBy)

	rec, resp = env.get(t, "/api/audit/compliance/iso27001?start_date=2000-01-01&end_date="+today)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &report))
	assert.Equal(t, compliance.ReportISO27001, report.ReportType)

	assert.NotEmpty(t, env.entries(t, audit.EventComplianceAuditEnd))
}

func TestComplianceReports_Validation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, envOptions{})

	for _, target := range []string{
		"/api/audit/compliance/soc2",
		"/api/audit/compliance/soc2?start_date=2026-05-01",
		"/api/audit/compliance/iso27001?start_date=2026-05-31&end_date=2026-05-01",
		"/api/audit/compliance/iso27001?start_date=may&end_date=june",
	} {
		rec, resp := env.get(t, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		require.NotNil(t, resp.Error, target)
		assert.Equal(t, ErrCodeValidationFailed, resp.Error.Code, target)
	}
}

type failingReports struct{}

func (failingReports) Generate(context.Context, compliance.ReportType, string, string, audit.Fields) (*compliance.Report, error) {
	return nil, assert.AnError
}

func TestComplianceReports_FailureIsAudited(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, envOptions{reports: failingReports{}})

	rec, resp := env.get(t, "/api/audit/compliance/soc2?start_date=2026-05-01&end_date=2026-05-31")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeSOC2Report, resp.Error.Code)

	errs := env.entries(t, audit.EventSystemError)
	require.Len(t, errs, 1)
	assert.Equal(t, "generate_soc2_report", errs[0].Details.Str("operation"))
	assert.Equal(t, audit.RiskHigh, errs[0].RiskLevel)
}

func TestTypes(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, envOptions{})

	rec, resp := env.get(t, "/api/audit/types")
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		EventTypes []EventTypeInfo `json:"event_types"`
		Categories []string        `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Len(t, data.EventTypes, len(audit.EventTypes()))
	assert.Contains(t, data.Categories, "general")

	for _, info := range data.EventTypes {
		if info.Type == audit.EventThreatDetected {
			assert.Equal(t, audit.CategorySecurity, info.Category)
			assert.Equal(t, audit.RiskHigh, info.RiskLevel)
			assert.Equal(t, audit.Retention10Years, info.Retention)
		}
	}
}

func TestExport(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, envOptions{})
	env.seed(t, audit.EventDataRead, "player-1", 2)

	rec, _ := env.get(t, "/api/audit/export?format=cef&event_type=data.read")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".cef")
	assert.Contains(t, rec.Body.String(), "CEF:0|ChaseWhiteRabbit|DiceRoller|2.1.0|data.read|")

	rec, _ = env.get(t, "/api/audit/export")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	exports := env.entries(t, audit.EventDataExport)
	require.Len(t, exports, 2)
	assert.Equal(t, "admin-user", exports[0].UserID())

	rec, resp := env.get(t, "/api/audit/export?format=xml")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidationFailed, resp.Error.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, envOptions{})

	rec, resp := env.get(t, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	rec, _ = env.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Neither route sits behind the access audit.
	assert.Empty(t, env.entries(t, audit.EventAPIRequest))
}
