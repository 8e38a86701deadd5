package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// helper to run the CLI with the given arguments, returning stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := Run(context.Background(), append([]string{"pipeline-mcp", "--no-log"}, args...), strings.NewReader(""), &stdout, &stderr)
	return stdout.String(), err
}

// ---------------------------------------------------------------------------
// run command
// ---------------------------------------------------------------------------

func TestRunCompletes(t *testing.T) {
	out, err := runCLI(t, "run", "--project", "demo", "--step-delay", "50ms", "--poll-interval", "10ms")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Pipeline started for demo") {
		t.Fatalf("missing start line:\n%s", out)
	}
	if !strings.Contains(out, "✓ [12/12] Publishing artifacts") {
		t.Fatalf("missing last step:\n%s", out)
	}
	if !strings.Contains(out, "completed: 12 of 12 (100%)") {
		t.Fatalf("missing summary:\n%s", out)
	}
}

func TestRunFailureWithoutRetry(t *testing.T) {
	out, err := runCLI(t, "run", "--step-delay", "50ms", "--fail-at-step", "2", "--poll-interval", "10ms")
	if err == nil {
		t.Fatalf("expected error for failed pipeline:\n%s", out)
	}
	if !strings.Contains(err.Error(), "ended failed") {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "✗ FAILED: Installing dependencies") {
		t.Fatalf("missing failure line:\n%s", out)
	}
}

func TestRunFailureWithResume(t *testing.T) {
	out, err := runCLI(t, "run", "--step-delay", "50ms", "--fail-at-step", "11",
		"--retry", "resume", "--retry-step-delay", "50ms", "--poll-interval", "10ms")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "mode: resume, from step 11/12") {
		t.Fatalf("missing retry line:\n%s", out)
	}
	if !strings.Contains(out, "✓ [11/12] Creating deployment package (fixed!)") {
		t.Fatalf("missing fixed step:\n%s", out)
	}
	if !strings.Contains(out, "✓ Pipeline completed on retry") {
		t.Fatalf("missing retry completion:\n%s", out)
	}
}

func TestRunInvalidArguments(t *testing.T) {
	tests := map[string]struct {
		args []string
	}{
		"delay too short":      {args: []string{"run", "--step-delay", "1ms"}},
		"failure out of range": {args: []string{"run", "--fail-at-step", "13"}},
		"unknown retry mode":   {args: []string{"run", "--retry", "rewind"}},
		"unknown command":      {args: []string{"deploy"}},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := runCLI(t, test.args...); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Config file
// ---------------------------------------------------------------------------

func TestRunWithConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "pipeline:\n  defaultStepDelay: 50ms\n  defaultProject: from-file\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := runCLI(t, "--config", path, "run", "--poll-interval", "10ms")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Pipeline started for from-file") {
		t.Fatalf("config project not applied:\n%s", out)
	}
}

func TestRunWithInvalidConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("pipeline:\n  defaultStepDelay: 1h\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := runCLI(t, "--config", path, "run"); err == nil {
		t.Fatal("expected invalid config error")
	}
}
