package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetupLevels(t *testing.T) {
	orig := L
	defer func() { L = orig }()

	var buf bytes.Buffer
	if err := Setup(&buf, "info"); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	L.Debug("hidden")
	L.Info("slot decoded", "index", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message written at info level: %q", out)
	}
	if !strings.Contains(out, "slot decoded") || !strings.Contains(out, "index=3") {
		t.Errorf("missing info message or keyvals: %q", out)
	}
	if !strings.Contains(out, "tdvault") {
		t.Errorf("missing prefix: %q", out)
	}
}

func TestSetupInvalidLevel(t *testing.T) {
	if err := Setup(&bytes.Buffer{}, "loud"); err == nil {
		t.Error("Expected error for unknown level")
	}
}
