// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package audit

import (
	"sort"
	"strings"
)

// EventType is a dot-namespaced identifier from the event catalog.
// The string values are wire-stable: they are persisted and used for filtering.
type EventType string

// Authentication events.
const (
	EventLoginSuccess   EventType = "auth.login.success"
	EventLoginFailed    EventType = "auth.login.failed"
	EventLogout         EventType = "auth.logout"
	EventTokenRefresh   EventType = "auth.token.refresh"
	EventPasswordChange EventType = "auth.password.change"
	EventPasswordReset  EventType = "auth.password.reset"
)

// Authorization events.
const (
	EventAccessGranted    EventType = "authz.access.granted"
	EventAccessDenied     EventType = "authz.access.denied"
	EventPermissionChange EventType = "authz.permission.change"
	EventRoleAssignment   EventType = "authz.role.assignment"
)

// Data access events.
const (
	EventDataRead   EventType = "data.read"
	EventDataCreate EventType = "data.create"
	EventDataUpdate EventType = "data.update"
	EventDataDelete EventType = "data.delete"
	EventDataExport EventType = "data.export"
	EventDataImport EventType = "data.import"
)

// System events.
const (
	EventConfigChange EventType = "system.config.change"
	EventStartup      EventType = "system.startup"
	EventShutdown     EventType = "system.shutdown"
	EventSystemError  EventType = "system.error"
	EventMaintenance  EventType = "system.maintenance"
)

// Security events.
const (
	EventThreatDetected    EventType = "security.threat.detected"
	EventPolicyViolation   EventType = "security.policy.violation"
	EventVulnerabilityScan EventType = "security.vulnerability.scan"
	EventIncidentCreated   EventType = "security.incident.created"
)

// Compliance events.
const (
	EventComplianceAuditStart EventType = "compliance.audit.start"
	EventComplianceAuditEnd   EventType = "compliance.audit.end"
	EventPolicyUpdate         EventType = "compliance.policy.update"
	EventTrainingCompleted    EventType = "compliance.training.completed"
)

// API events.
const (
	EventAPIRequest         EventType = "api.request"
	EventRateLimitExceeded  EventType = "api.rate_limit.exceeded"
	EventDeprecationWarning EventType = "api.deprecation.warning"
)

// Category groups event types by namespace.
type Category string

const (
	CategoryAuthentication Category = "authentication"
	CategoryAuthorization  Category = "authorization"
	CategoryDataAccess     Category = "data_access"
	CategorySystem         Category = "system"
	CategorySecurity       Category = "security"
	CategoryCompliance     Category = "compliance"
	CategoryAPI            Category = "api"
	CategoryGeneral        Category = "general"
)

// RiskLevel is the assessed risk of an event.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Valid reports whether r is one of the known risk levels.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// Retention is a record retention period such as "7y".
type Retention string

const (
	Retention7Years  Retention = "7y"
	Retention10Years Retention = "10y"
)

// Classification holds the static attributes of an event type.
type Classification struct {
	Category  Category
	Risk      RiskLevel
	Warning   bool // logged at warn severity unless the outcome is a failure
	SOC2      bool
	ISO27001  bool
	GDPR      bool
	Retention Retention
}

// catalog is the single source of truth for event classification.
var catalog = map[EventType]Classification{
	EventLoginSuccess:   {Category: CategoryAuthentication, Risk: RiskLow, SOC2: true, Retention: Retention7Years},
	EventLoginFailed:    {Category: CategoryAuthentication, Risk: RiskHigh, Warning: true, SOC2: true, ISO27001: true, Retention: Retention7Years},
	EventLogout:         {Category: CategoryAuthentication, Risk: RiskLow, Retention: Retention7Years},
	EventTokenRefresh:   {Category: CategoryAuthentication, Risk: RiskLow, Retention: Retention7Years},
	EventPasswordChange: {Category: CategoryAuthentication, Risk: RiskLow, GDPR: true, Retention: Retention7Years},
	EventPasswordReset:  {Category: CategoryAuthentication, Risk: RiskLow, Retention: Retention7Years},

	EventAccessGranted:    {Category: CategoryAuthorization, Risk: RiskLow, Retention: Retention7Years},
	EventAccessDenied:     {Category: CategoryAuthorization, Risk: RiskHigh, Warning: true, ISO27001: true, Retention: Retention7Years},
	EventPermissionChange: {Category: CategoryAuthorization, Risk: RiskLow, Retention: Retention7Years},
	EventRoleAssignment:   {Category: CategoryAuthorization, Risk: RiskLow, Retention: Retention7Years},

	EventDataRead:   {Category: CategoryDataAccess, Risk: RiskLow, GDPR: true, Retention: Retention7Years},
	EventDataCreate: {Category: CategoryDataAccess, Risk: RiskLow, SOC2: true, GDPR: true, Retention: Retention7Years},
	EventDataUpdate: {Category: CategoryDataAccess, Risk: RiskLow, SOC2: true, GDPR: true, Retention: Retention7Years},
	EventDataDelete: {Category: CategoryDataAccess, Risk: RiskHigh, SOC2: true, GDPR: true, Retention: Retention7Years},
	EventDataExport: {Category: CategoryDataAccess, Risk: RiskLow, GDPR: true, Retention: Retention7Years},
	EventDataImport: {Category: CategoryDataAccess, Risk: RiskLow, Retention: Retention7Years},

	EventConfigChange: {Category: CategorySystem, Risk: RiskLow, SOC2: true, ISO27001: true, Retention: Retention7Years},
	EventStartup:      {Category: CategorySystem, Risk: RiskLow, Retention: Retention7Years},
	EventShutdown:     {Category: CategorySystem, Risk: RiskLow, Retention: Retention7Years},
	EventSystemError:  {Category: CategorySystem, Risk: RiskHigh, Retention: Retention7Years},
	EventMaintenance:  {Category: CategorySystem, Risk: RiskLow, Retention: Retention7Years},

	EventThreatDetected:    {Category: CategorySecurity, Risk: RiskHigh, SOC2: true, ISO27001: true, Retention: Retention10Years},
	EventPolicyViolation:   {Category: CategorySecurity, Risk: RiskHigh, ISO27001: true, Retention: Retention7Years},
	EventVulnerabilityScan: {Category: CategorySecurity, Risk: RiskLow, Retention: Retention7Years},
	EventIncidentCreated:   {Category: CategorySecurity, Risk: RiskLow, ISO27001: true, Retention: Retention10Years},

	EventComplianceAuditStart: {Category: CategoryCompliance, Risk: RiskLow, ISO27001: true, Retention: Retention10Years},
	EventComplianceAuditEnd:   {Category: CategoryCompliance, Risk: RiskLow, ISO27001: true, Retention: Retention10Years},
	EventPolicyUpdate:         {Category: CategoryCompliance, Risk: RiskLow, Retention: Retention7Years},
	EventTrainingCompleted:    {Category: CategoryCompliance, Risk: RiskLow, Retention: Retention7Years},

	EventAPIRequest:         {Category: CategoryAPI, Risk: RiskLow, Retention: Retention7Years},
	EventRateLimitExceeded:  {Category: CategoryAPI, Risk: RiskLow, Warning: true, Retention: Retention7Years},
	EventDeprecationWarning: {Category: CategoryAPI, Risk: RiskLow, Retention: Retention7Years},
}

// namespaces maps a type prefix to its category. Used for types outside the catalog.
var namespaces = []struct {
	prefix   string
	category Category
}{
	{"auth.", CategoryAuthentication},
	{"authz.", CategoryAuthorization},
	{"data.", CategoryDataAccess},
	{"system.", CategorySystem},
	{"security.", CategorySecurity},
	{"compliance.", CategoryCompliance},
	{"api.", CategoryAPI},
}

// Classify returns the static attributes of an event type.
//
// Types outside the catalog return ErrUnknownEventType together with a usable
// fallback classification: category from the namespace prefix (general when
// there is none), low risk, no compliance flags, 7y retention. Callers that
// write entries use the fallback rather than rejecting the event.
func Classify(eventType EventType) (Classification, error) {
	if c, ok := catalog[eventType]; ok {
		return c, nil
	}
	return Classification{
		Category:  categoryFromPrefix(string(eventType)),
		Risk:      RiskLow,
		Retention: Retention7Years,
	}, ErrUnknownEventType
}

func categoryFromPrefix(eventType string) Category {
	for _, ns := range namespaces {
		if strings.HasPrefix(eventType, ns.prefix) {
			return ns.category
		}
	}
	return CategoryGeneral
}

// Known reports whether eventType is part of the catalog.
func Known(eventType EventType) bool {
	_, ok := catalog[eventType]
	return ok
}

// IsSOC2Relevant reports whether events of this type feed SOC2 reports.
func IsSOC2Relevant(eventType EventType) bool { return catalog[eventType].SOC2 }

// IsISO27001Relevant reports whether events of this type feed ISO 27001 reports.
func IsISO27001Relevant(eventType EventType) bool { return catalog[eventType].ISO27001 }

// IsGDPRRelevant reports whether events of this type involve personal data.
func IsGDPRRelevant(eventType EventType) bool { return catalog[eventType].GDPR }

// RetentionFor returns the default retention period for an event type.
func RetentionFor(eventType EventType) Retention {
	c, _ := Classify(eventType)
	return c.Retention
}

// EventTypes returns every catalog type sorted by identifier.
func EventTypes() []EventType {
	types := make([]EventType, 0, len(catalog))
	for t := range catalog {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// EventTypesByCategory groups the catalog by category.
func EventTypesByCategory() map[Category][]EventType {
	out := make(map[Category][]EventType)
	for _, t := range EventTypes() {
		c := catalog[t].Category
		out[c] = append(out[c], t)
	}
	return out
}

// Categories returns all categories, general last.
func Categories() []Category {
	return []Category{
		CategoryAuthentication,
		CategoryAuthorization,
		CategoryDataAccess,
		CategorySystem,
		CategorySecurity,
		CategoryCompliance,
		CategoryAPI,
		CategoryGeneral,
	}
}
