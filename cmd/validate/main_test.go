package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circulight/internal/validation/models"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"REGISTRY_SOURCE", "REGISTRY_FILE", "REGISTRY_CACHE_TTL", "LEDGER_SCOPE", "LEDGER_BACKEND",
		"LEDGER_POLICY", "KAFKA_BROKERS", "DATABASE_URL", "REDIS_URL", "CIRCULIGHT_LOG_LEVEL",
		"CIRCULIGHT_LOG_FORMAT", "VALIDATION_CONCURRENCY", "MATCH_WORKERS",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const registryCSV = "name,address,city,zip,id\nJohn Smith,123 Main St,Springfield,12345,r-1\n"

func TestRunRecordsArray(t *testing.T) {
	clearEnv(t)
	registryPath := writeFile(t, "registry.csv", registryCSV)
	input := writeFile(t, "candidates.json", `[
		{"name":"John Smith","address":"123 Main St","city":"Springfield","zip":"12345"},
		{"name":"john smith","address":"123 MAIN ST","city":"Springfield","zip":"12345"},
		{"name":"Zyx Qwv","address":"999 Nowhere Blvd","city":"Gotham","zip":"00000"}
	]`)
	metricsPath := filepath.Join(t.TempDir(), "validate.prom")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"--registry", registryPath, "--metrics-out", metricsPath, input}, nil, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	var report models.BatchReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	require.Len(t, report.Results, 3)
	assert.Equal(t, models.Accepted, report.Results[0].Code)
	assert.Equal(t, "r-1", report.Results[0].Reference.ID)
	assert.Equal(t, models.Duplicate, report.Results[1].Code)
	assert.Equal(t, models.Rejected, report.Results[2].Code)
	assert.Equal(t, 3, report.Summary.Total)

	assert.Contains(t, stderr.String(), "validation batch completed")

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `circulight_validation_outcomes_total{code="duplicate"} 1`)
}

func TestRunExtractionFromStdin(t *testing.T) {
	clearEnv(t)
	registryPath := writeFile(t, "registry.json", `[{"name":"John Smith","address":"123 Main St","city":"Springfield","zip":"12345"}]`)
	stdin := strings.NewReader("```json\n{\"signatures\":[{\"name\":\"Jon Smith\",\"address\":\"123 Main St\",\"city\":\"Springfield\",\"zip\":\"12345\"}],\"rawText\":\"\"}\n```")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"--extraction", "--registry", registryPath, "-"}, stdin, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	var report models.BatchReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	require.Len(t, report.Results, 1)
	assert.Equal(t, models.Accepted, report.Results[0].Code)
	assert.Equal(t, []string{`did you mean "John Smith"?`}, report.Results[0].Suggestions)
}

func TestRunDurableMemoryLedger(t *testing.T) {
	clearEnv(t)
	t.Setenv("LEDGER_SCOPE", "durable")
	t.Setenv("LEDGER_BACKEND", "memory")
	registryPath := writeFile(t, "registry.csv", registryCSV)
	input := writeFile(t, "candidates.json", `[{"name":"John Smith","address":"123 Main St"}]`)

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"--registry", registryPath, input}, nil, &stdout, &stderr))
}

func TestRunErrors(t *testing.T) {
	clearEnv(t)
	registryPath := writeFile(t, "registry.csv", registryCSV)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing input argument", []string{"--registry", registryPath}, "input path"},
		{"missing registry", []string{"candidates.json"}, "REGISTRY_FILE"},
		{"unreadable input", []string{"--registry", registryPath, filepath.Join(t.TempDir(), "nope.json")}, "read input"},
		{"malformed candidates", []string{"--registry", registryPath, writeFile(t, "bad.json", "{")}, "decode candidates"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(context.Background(), tt.args, nil, &stdout, &stderr)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Empty(t, stdout.String())
		})
	}
}
