package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"fleet-analytics-service/internal/domain"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATABASE_URL", filepath.Join(dir, "fleet.db"))
	t.Setenv("MODEL_PATH", filepath.Join(dir, "model.json"))
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSummaryOnEmptyDatabase(t *testing.T) {
	out, err := runCLI(t, "summary")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	var sum domain.OptimizationSummary
	if err := json.Unmarshal([]byte(out), &sum); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if sum.PendingDeliveries != 0 || sum.OptimizationPotential != domain.PotentialLow {
		t.Errorf("summary = %+v", sum)
	}
}

func TestOptimizeReportsUnsuccessfulRun(t *testing.T) {
	out, err := runCLI(t, "optimize", "--max", "5")
	if err == nil || !strings.Contains(err.Error(), "No pending deliveries") {
		t.Fatalf("err = %v, want nothing-pending error", err)
	}
	if !strings.Contains(out, `"success": false`) {
		t.Errorf("output %q does not carry the result", out)
	}
}

func TestTrainNeedsHistory(t *testing.T) {
	if _, err := runCLI(t, "train"); err == nil {
		t.Fatal("expected insufficient data error")
	}
}

func TestImportanceRequiresModel(t *testing.T) {
	if _, err := runCLI(t, "importance"); err == nil {
		t.Fatal("expected not trained error")
	}
}
