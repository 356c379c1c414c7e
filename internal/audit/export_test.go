// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package audit

import (
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportFixture() []Entry {
	clock := newFakeClock(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	b := NewBuilder(testMetadata(), WithClock(clock.Now))
	return []Entry{
		b.Build(EventLoginFailed, Context{
			User:    User("u|1", "eve=bad@example.com"),
			Request: Request("203.0.113.1", ""),
			Outcome: OutcomeFailure,
		}),
		b.Build(EventDataRead, Context{Resource: Resource("roll_history", "r-1"), Outcome: OutcomeSuccess}),
	}
}

func TestJSONExporter(t *testing.T) {
	t.Parallel()

	data, err := JSONExporter{}.Export(exportFixture())
	require.NoError(t, err)

	var back []Entry
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Len(t, back, 2)

	empty, err := JSONExporter{}.Export(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}

func TestNDJSONExporter_MatchesPersistedFormat(t *testing.T) {
	t.Parallel()

	entries := exportFixture()
	data, err := NDJSONExporter{}.Export(entries)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	line, err := EncodeLine(&entries[0])
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSuffix(string(line), "\n"), lines[0])
}

func TestCEFExporter(t *testing.T) {
	t.Parallel()

	data, err := NewCEFExporter("2.1.0").Export(exportFixture())
	require.NoError(t, err)

	lines := strings.Split(string(data), "\n")
	require.Len(t, lines, 2)

	assert.True(t, strings.HasPrefix(lines[0], "CEF:0|ChaseWhiteRabbit|DiceRoller|2.1.0|auth.login.failed|authentication failure|8|"))
	assert.Contains(t, lines[0], `suid=u|1`)
	assert.Contains(t, lines[0], `suser=eve\=bad@example.com`)
	assert.Contains(t, lines[0], "src=203.0.113.1")
	assert.Contains(t, lines[0], "rt=1780315200000")

	assert.Contains(t, lines[1], "|data.read|data_access success|1|")
	assert.Contains(t, lines[1], "cs1=roll_history")
}

func TestCEFEscape(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `a\|b\\c d`, cefEscapeHeader("a|b\\c\nd"))
	assert.Equal(t, `k\=v|x`, cefEscapeExt("k=v|x"))
}
