// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package audit

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Exporter renders entries for an external consumer.
type Exporter interface {
	Export(entries []Entry) ([]byte, error)
	ContentType() string
	FileExtension() string
}

// JSONExporter exports entries as an indented JSON array.
type JSONExporter struct{}

// Export implements Exporter.
func (JSONExporter) Export(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	return json.MarshalIndent(entries, "", "  ")
}

// ContentType implements Exporter.
func (JSONExporter) ContentType() string { return "application/json" }

// FileExtension implements Exporter.
func (JSONExporter) FileExtension() string { return "json" }

// NDJSONExporter exports entries in the persisted line format.
type NDJSONExporter struct{}

// Export implements Exporter.
func (NDJSONExporter) Export(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	for idx := range entries {
		line, err := EncodeLine(&entries[idx])
		if err != nil {
			return nil, err
		}
		buf.Write(line)
	}
	return buf.Bytes(), nil
}

// ContentType implements Exporter.
func (NDJSONExporter) ContentType() string { return "application/x-ndjson" }

// FileExtension implements Exporter.
func (NDJSONExporter) FileExtension() string { return "jsonl" }

// CEFExporter exports entries in ArcSight Common Event Format for SIEMs.
type CEFExporter struct {
	DeviceVendor  string
	DeviceProduct string
	DeviceVersion string
}

// NewCEFExporter creates a CEF exporter identifying this service.
func NewCEFExporter(version string) *CEFExporter {
	if version == "" {
		version = "1.0"
	}
	return &CEFExporter{
		DeviceVendor:  "ChaseWhiteRabbit",
		DeviceProduct: "DiceRoller",
		DeviceVersion: version,
	}
}

// Export implements Exporter.
// CEF:Version|Device Vendor|Device Product|Device Version|Signature ID|Name|Severity|Extension
func (c *CEFExporter) Export(entries []Entry) ([]byte, error) {
	lines := make([]string, 0, len(entries))
	for idx := range entries {
		e := &entries[idx]
		lines = append(lines, fmt.Sprintf("CEF:0|%s|%s|%s|%s|%s|%d|%s",
			cefEscapeHeader(c.DeviceVendor),
			cefEscapeHeader(c.DeviceProduct),
			cefEscapeHeader(c.DeviceVersion),
			cefEscapeHeader(string(e.EventType)),
			cefEscapeHeader(string(e.EventCategory)+" "+string(e.Outcome)),
			cefSeverity(e),
			cefExtension(e),
		))
	}
	return []byte(strings.Join(lines, "\n")), nil
}

// ContentType implements Exporter.
func (*CEFExporter) ContentType() string { return "text/plain" }

// FileExtension implements Exporter.
func (*CEFExporter) FileExtension() string { return "cef" }

// cefSeverity maps risk to the CEF 0-10 scale, raised for failed outcomes.
func cefSeverity(e *Entry) int {
	sev := 1
	switch e.RiskLevel {
	case RiskMedium:
		sev = 4
	case RiskHigh:
		sev = 7
	case RiskCritical:
		sev = 10
	}
	if e.Severity == SeverityError && sev < 10 {
		sev++
	}
	return sev
}

func cefExtension(e *Entry) string {
	parts := []string{
		fmt.Sprintf("rt=%d", e.Timestamp.UnixMilli()),
		"externalId=" + cefEscapeExt(e.AuditID),
		"cat=" + cefEscapeExt(string(e.EventCategory)),
		"outcome=" + cefEscapeExt(string(e.Outcome)),
	}
	if id := e.UserID(); id != "" {
		parts = append(parts, "suid="+cefEscapeExt(id))
	}
	if email := e.User.Str("email"); email != "" {
		parts = append(parts, "suser="+cefEscapeExt(email))
	}
	if ip := e.RequestIP(); ip != "" {
		parts = append(parts, "src="+cefEscapeExt(ip))
	}
	if method := e.Request.Str("method"); method != "" {
		parts = append(parts, "requestMethod="+cefEscapeExt(method))
	}
	if url := e.Request.Str("url"); url != "" {
		parts = append(parts, "request="+cefEscapeExt(url))
	}
	if kind := e.Resource.Str("type"); kind != "" {
		parts = append(parts, "cs1Label=resourceType", "cs1="+cefEscapeExt(kind))
	}
	return strings.Join(parts, " ")
}

var (
	cefHeaderReplacer = strings.NewReplacer(`\`, `\\`, `|`, `\|`, "\n", " ", "\r", "")
	cefExtReplacer    = strings.NewReplacer(`\`, `\\`, `=`, `\=`, "\n", " ", "\r", "")
)

func cefEscapeHeader(s string) string { return cefHeaderReplacer.Replace(s) }

func cefEscapeExt(s string) string { return cefExtReplacer.Replace(s) }
