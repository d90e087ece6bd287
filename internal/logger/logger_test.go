package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
)

// reset restores package defaults after a test.
func reset() {
	SetVerbose(false)
	_ = Init("info", FormatConsole)
	SetOutput(os.Stderr)
}

func TestSetVerbose(t *testing.T) {
	defer reset()

	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected verbose to be false initially")
	}

	SetVerbose(true)
	if !IsVerbose() {
		t.Error("expected verbose to be true after SetVerbose(true)")
	}

	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected verbose to be false after SetVerbose(false)")
	}
}

func TestDebug_WhenVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Debug("test message %s", "arg")

	output := buf.String()
	if !strings.Contains(output, "DEBUG") || !strings.Contains(output, "test message arg") {
		t.Errorf("unexpected output: %q", output)
	}
}

func TestDebug_WhenNotVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Debug("test message")
	Section("hidden")

	if buf.Len() > 0 {
		t.Errorf("expected no output when verbose is disabled, got %q", buf.String())
	}
}

func TestSection(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Section("Test Section")

	if !strings.Contains(buf.String(), "=== Test Section ===") {
		t.Errorf("unexpected section output: %q", buf.String())
	}
}

func TestInfoAndWarn_AlwaysShown(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	Info("info message %d", 42)
	Warn("warning message")

	output := buf.String()
	if !strings.Contains(output, "INFO\tinfo message 42") {
		t.Errorf("unexpected info output: %q", output)
	}
	if !strings.Contains(output, "WARN\twarning message") {
		t.Errorf("unexpected warn output: %q", output)
	}
}

func TestInit_LevelFilters(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	if err := Init("error", FormatConsole); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	Warn("dropped")
	Error("kept")

	if strings.Contains(buf.String(), "dropped") {
		t.Error("warn should be filtered at error level")
	}
	if !strings.Contains(buf.String(), "kept") {
		t.Error("error should be logged at error level")
	}
}

func TestInit_JSON(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	if err := Init("info", FormatJSON); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	With(zap.String("document_id", "doc-1")).Infow("processed", "chunks", 3)

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "processed" || entry["document_id"] != "doc-1" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Error("expected ts key")
	}
}

func TestInit_Invalid(t *testing.T) {
	defer reset()

	if err := Init("loud", FormatConsole); err == nil {
		t.Error("expected error for unknown level")
	}
	if err := Init("info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestConcurrentAccess(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			SetVerbose(true)
			Debug("concurrent")
			_ = IsVerbose()
			SetVerbose(false)
		}()
	}
	wg.Wait()
}
