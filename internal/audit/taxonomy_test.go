// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package audit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_KnownTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		eventType EventType
		category  Category
		risk      RiskLevel
		soc2      bool
		iso       bool
		gdpr      bool
		retention Retention
	}{
		{EventLoginSuccess, CategoryAuthentication, RiskLow, true, false, false, Retention7Years},
		{EventLoginFailed, CategoryAuthentication, RiskHigh, true, true, false, Retention7Years},
		{EventPasswordChange, CategoryAuthentication, RiskLow, false, false, true, Retention7Years},
		{EventAccessDenied, CategoryAuthorization, RiskHigh, false, true, false, Retention7Years},
		{EventDataRead, CategoryDataAccess, RiskLow, false, false, true, Retention7Years},
		{EventDataDelete, CategoryDataAccess, RiskHigh, true, false, true, Retention7Years},
		{EventConfigChange, CategorySystem, RiskLow, true, true, false, Retention7Years},
		{EventSystemError, CategorySystem, RiskHigh, false, false, false, Retention7Years},
		{EventThreatDetected, CategorySecurity, RiskHigh, true, true, false, Retention10Years},
		{EventIncidentCreated, CategorySecurity, RiskLow, false, true, false, Retention10Years},
		{EventComplianceAuditStart, CategoryCompliance, RiskLow, false, true, false, Retention10Years},
		{EventComplianceAuditEnd, CategoryCompliance, RiskLow, false, true, false, Retention10Years},
		{EventRateLimitExceeded, CategoryAPI, RiskLow, false, false, false, Retention7Years},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			t.Parallel()
			c, err := Classify(tt.eventType)
			require.NoError(t, err)
			assert.Equal(t, tt.category, c.Category)
			assert.Equal(t, tt.risk, c.Risk)
			assert.Equal(t, tt.soc2, c.SOC2)
			assert.Equal(t, tt.iso, c.ISO27001)
			assert.Equal(t, tt.gdpr, c.GDPR)
			assert.Equal(t, tt.retention, c.Retention)
		})
	}
}

func TestClassify_UnknownTypeFallsBack(t *testing.T) {
	t.Parallel()

	c, err := Classify("dice.roll")
	require.ErrorIs(t, err, ErrUnknownEventType)
	assert.Equal(t, CategoryGeneral, c.Category)
	assert.Equal(t, RiskLow, c.Risk)
	assert.False(t, c.SOC2 || c.ISO27001 || c.GDPR)
	assert.Equal(t, Retention7Years, c.Retention)

	c, err = Classify("auth.mfa.challenge")
	require.ErrorIs(t, err, ErrUnknownEventType)
	assert.Equal(t, CategoryAuthentication, c.Category, "namespace prefix still decides category")
}

func TestCatalog_NamespaceMatchesCategory(t *testing.T) {
	t.Parallel()

	for _, et := range EventTypes() {
		c, err := Classify(et)
		require.NoError(t, err)
		assert.Equal(t, categoryFromPrefix(string(et)), c.Category, "event type %s", et)
		assert.True(t, c.Risk.Valid())
		assert.NotEmpty(t, c.Retention)
	}
}

func TestCatalog_WarningTypes(t *testing.T) {
	t.Parallel()

	var warn []string
	for _, et := range EventTypes() {
		if catalog[et].Warning {
			warn = append(warn, string(et))
		}
	}
	assert.ElementsMatch(t, []string{"auth.login.failed", "authz.access.denied", "api.rate_limit.exceeded"}, warn)
}

func TestEventTypes_SortedAndComplete(t *testing.T) {
	t.Parallel()

	types := EventTypes()
	assert.Len(t, types, len(catalog))
	for i := 1; i < len(types); i++ {
		assert.Less(t, string(types[i-1]), string(types[i]))
	}

	byCat := EventTypesByCategory()
	for cat, list := range byCat {
		for _, et := range list {
			assert.True(t, strings.HasPrefix(string(et), strings.Split(string(et), ".")[0]))
			assert.Equal(t, cat, catalog[et].Category)
		}
	}
	assert.NotContains(t, byCat, CategoryGeneral)
}

func TestComplianceHelpers(t *testing.T) {
	t.Parallel()

	assert.True(t, IsSOC2Relevant(EventDataCreate))
	assert.False(t, IsSOC2Relevant(EventDataRead))
	assert.True(t, IsISO27001Relevant(EventPolicyViolation))
	assert.True(t, IsGDPRRelevant(EventDataExport))
	assert.False(t, IsGDPRRelevant("unknown.type"))
	assert.Equal(t, Retention10Years, RetentionFor(EventThreatDetected))
	assert.Equal(t, Retention7Years, RetentionFor("unknown.type"))
}
