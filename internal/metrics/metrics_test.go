// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSinkFailure(t *testing.T) {
	requiredBefore := testutil.ToFloat64(AuditWriteFailures.WithLabelValues("primary-test"))
	optionalBefore := testutil.ToFloat64(AuditOptionalSinkFailures.WithLabelValues("stream-test"))

	RecordSinkFailure("primary-test", false)
	RecordSinkFailure("stream-test", true)
	RecordSinkFailure("stream-test", true)

	assert.Equal(t, requiredBefore+1, testutil.ToFloat64(AuditWriteFailures.WithLabelValues("primary-test")))
	assert.Equal(t, optionalBefore+2, testutil.ToFloat64(AuditOptionalSinkFailures.WithLabelValues("stream-test")))
}

func TestRecordAuditQuery_SkippedLines(t *testing.T) {
	before := testutil.ToFloat64(AuditSkippedLines)

	RecordAuditQuery("query", 5*time.Millisecond, 0)
	assert.Equal(t, before, testutil.ToFloat64(AuditSkippedLines))

	RecordAuditQuery("query", 5*time.Millisecond, 3)
	assert.Equal(t, before+3, testutil.ToFloat64(AuditSkippedLines))
}

func TestRecordComplianceReport(t *testing.T) {
	okBefore := testutil.ToFloat64(ComplianceReportsGenerated.WithLabelValues("soc2", "success"))
	errBefore := testutil.ToFloat64(ComplianceReportsGenerated.WithLabelValues("soc2", "error"))

	RecordComplianceReport("soc2", time.Millisecond, nil)
	RecordComplianceReport("soc2", time.Millisecond, errors.New("scan failed"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(ComplianceReportsGenerated.WithLabelValues("soc2", "success")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(ComplianceReportsGenerated.WithLabelValues("soc2", "error")))
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	assert.Equal(t, before+1, testutil.ToFloat64(APIActiveRequests))
	TrackActiveRequest(false)
	assert.Equal(t, before, testutil.ToFloat64(APIActiveRequests))
}
