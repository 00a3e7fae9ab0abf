package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/bryanchriswhite/CaptureDeck/internal/config"
	"github.com/bryanchriswhite/CaptureDeck/internal/events"
	"github.com/bryanchriswhite/CaptureDeck/internal/window"
	"gopkg.in/yaml.v3"
)

var sampleWindows = []window.Descriptor{
	{ID: "1", Title: "Notepad", AppName: "notepad.exe", Geometry: window.Geometry{Width: 800, Height: 600}},
	{ID: "42", Title: "Terminal", AppName: "xterm"},
}

func TestPrintWindowsTable(t *testing.T) {
	var buf bytes.Buffer
	if err := printWindows(&buf, sampleWindows, "table"); err != nil {
		t.Fatalf("printWindows() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "ID") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[2], "800x600") || !strings.Contains(lines[2], "Notepad") {
		t.Errorf("row = %q", lines[2])
	}
}

func TestPrintWindowsJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printWindows(&buf, sampleWindows, "json"); err != nil {
		t.Fatalf("printWindows() error = %v", err)
	}

	var got []window.Descriptor
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(got) != 2 || got[1].ID != "42" {
		t.Errorf("got %+v", got)
	}
}

func TestPrintWindowsUnknownFormat(t *testing.T) {
	if err := printWindows(&bytes.Buffer{}, nil, "xml"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestPathPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := pathPrinter{out: &buf}

	p.Emit(events.RecordingStarted, nil)
	p.Emit(events.CaptureTaken, "/data/captures/capture_1.webp")
	p.Emit(events.CaptureTaken, 17)

	if got := buf.String(); got != "/data/captures/capture_1.webp\n" {
		t.Errorf("output = %q", got)
	}
}

func TestWriteConfig(t *testing.T) {
	cfg := config.Defaults()

	var buf bytes.Buffer
	if err := writeConfig(&buf, cfg, "yaml"); err != nil {
		t.Fatalf("writeConfig(yaml) error = %v", err)
	}
	var fromYAML config.Config
	if err := yaml.Unmarshal(buf.Bytes(), &fromYAML); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if fromYAML.Recorder.InputFormat != cfg.Recorder.InputFormat {
		t.Errorf("input_format = %q", fromYAML.Recorder.InputFormat)
	}

	buf.Reset()
	if err := writeConfig(&buf, cfg, "json"); err != nil {
		t.Fatalf("writeConfig(json) error = %v", err)
	}
	if !strings.Contains(buf.String(), `"interval_ms": 1000`) {
		t.Errorf("json output missing interval:\n%s", buf.String())
	}

	if err := writeConfig(&buf, cfg, "toml"); err == nil {
		t.Error("expected error for unsupported format")
	}
}
