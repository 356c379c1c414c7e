// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package compliance

import (
	"math"

	"github.com/tomtom215/chasewhiterabbit/internal/audit"
)

// Status is the verdict for a control or criterion.
type Status string

const (
	StatusCompliant    Status = "compliant"
	StatusNonCompliant Status = "non_compliant"
)

// DefaultThreshold is the minimum score considered compliant.
const DefaultThreshold = 80.0

// Policy turns a group of entries into a score and a status.
type Policy struct {
	Score  func(entries []audit.Entry) float64
	Status func(score float64) Status
}

// DefaultPolicy scores with WeightedDeficiencyScore and marks scores at or
// above DefaultThreshold compliant.
func DefaultPolicy() Policy {
	return Policy{
		Score:  WeightedDeficiencyScore,
		Status: ThresholdStatus(DefaultThreshold),
	}
}

// ThresholdStatus returns a status func that is compliant at or above threshold.
func ThresholdStatus(threshold float64) func(float64) Status {
	return func(score float64) Status {
		if score >= threshold {
			return StatusCompliant
		}
		return StatusNonCompliant
	}
}

var riskWeight = map[audit.RiskLevel]float64{
	audit.RiskLow:      0,
	audit.RiskMedium:   1,
	audit.RiskHigh:     3,
	audit.RiskCritical: 5,
}

const maxWeight = 5.0

// Deficient reports whether e records a control that did not hold: a failed,
// denied, errored, blocked or detected action.
func Deficient(e *audit.Entry) bool {
	return e.Outcome.Failed() || e.Outcome == audit.OutcomeBlocked || e.Outcome == audit.OutcomeDetected
}

// WeightedDeficiencyScore is 100 minus the risk-weighted share of deficient
// entries, where each deficient entry weighs 0 (low), 1 (medium), 3 (high)
// or 5 (critical) against a maximum of 5 per entry. An empty group scores
// 100. The result is rounded to one decimal.
func WeightedDeficiencyScore(entries []audit.Entry) float64 {
	if len(entries) == 0 {
		return 100
	}
	var deficiency float64
	for i := range entries {
		if Deficient(&entries[i]) {
			deficiency += riskWeight[entries[i].RiskLevel]
		}
	}
	score := 100 * (1 - deficiency/(maxWeight*float64(len(entries))))
	return math.Round(score*10) / 10
}
