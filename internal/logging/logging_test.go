package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestSetup_Text(t *testing.T) {
	var buf bytes.Buffer
	log, err := Setup(Options{Output: &buf})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	log.Info("waiting for vm IP address", "vmid", 100)
	log.V(1).Info("hidden debug message")

	out := buf.String()
	if !strings.Contains(out, "waiting for vm IP address") || !strings.Contains(out, "vmid=100") {
		t.Errorf("output = %q, want info message with vmid", out)
	}
	if strings.Contains(out, "hidden debug message") {
		t.Errorf("output = %q, V(1) should be disabled without debug", out)
	}
}

func TestSetup_DebugJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := Setup(Options{Debug: true, Format: FormatJSON, Output: &buf})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	log.V(1).Info("found IPv4 address", "address", "10.0.0.9")
	log.V(2).Info("network-get-interfaces reply")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if rec["msg"] != "found IPv4 address" {
		t.Errorf("msg = %v, want %q", rec["msg"], "found IPv4 address")
	}
	if rec["address"] != "10.0.0.9" {
		t.Errorf("address = %v, want %q", rec["address"], "10.0.0.9")
	}
}

func TestSetup_InvalidFormat(t *testing.T) {
	if _, err := Setup(Options{Format: "xml"}); err == nil {
		t.Error("Setup() expected error for invalid format, got nil")
	}
}

func TestWithRunID(t *testing.T) {
	var buf bytes.Buffer
	log, err := Setup(Options{Format: FormatJSON, Output: &buf})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	WithRunID(log).Info("hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	id, ok := rec["run"].(string)
	if !ok || len(id) != 36 {
		t.Errorf("run = %v, want a uuid", rec["run"])
	}
}
