//go:build !integration

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/pricescrape/internal/config"
	"github.com/sells-group/pricescrape/pkg/scrapeapi"
	"github.com/sells-group/pricescrape/pkg/scrapeapi/scrapeapitest"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		API: config.APIConfig{
			BaseURL:     baseURL,
			TimeoutSecs: 5,
			UserAgent:   "pricescrape-test",
			RateBurst:   1,
		},
		Poll:  config.PollConfig{IntervalSecs: 1},
		Watch: config.WatchConfig{MaxConcurrent: 2},
	}
}

func runStatusCmd(t *testing.T, format string, jobID string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	statusCmd.SetOut(&out)
	statusCmd.SetContext(context.Background())
	oldFormat := statusOutput
	statusOutput = format
	t.Cleanup(func() {
		statusOutput = oldFormat
		statusCmd.SetOut(nil)
	})

	err := statusCmd.RunE(statusCmd, []string{jobID})
	return out.String(), err
}

func TestStatusCmd_Text(t *testing.T) {
	srv := scrapeapitest.NewServer(t, "unused")
	srv.Script("job-1", scrapeapitest.Running(3, 10, "Processing Q2612A"))
	resetCfg(t)
	cfg = testConfig(srv.URL)

	got, err := runStatusCmd(t, "text", "job-1")
	require.NoError(t, err)
	assert.Contains(t, got, "Job ID:    job-1")
	assert.Contains(t, got, "Status:    running")
	assert.Contains(t, got, "Progress:  3/10 (30%)")
	assert.Contains(t, got, "Message:   Processing Q2612A")
}

func TestStatusCmd_JSON(t *testing.T) {
	srv := scrapeapitest.NewServer(t, "unused")
	srv.Script("job-1", scrapeapitest.Completed(8))
	resetCfg(t)
	cfg = testConfig(srv.URL)

	got, err := runStatusCmd(t, "json", "job-1")
	require.NoError(t, err)

	var v statusView
	require.NoError(t, json.Unmarshal([]byte(got), &v))
	assert.Equal(t, "job-1", v.JobID)
	assert.Equal(t, scrapeapi.StatusCompleted, v.Status)
	assert.Equal(t, 8, v.Progress.Total)
	require.NotNil(t, v.Percent)
	assert.InDelta(t, 100.0, *v.Percent, 0.001)
}

func TestStatusCmd_YAML(t *testing.T) {
	srv := scrapeapitest.NewServer(t, "unused")
	srv.Script("job-1", scrapeapitest.Running(0, 0, "Queued"))
	resetCfg(t)
	cfg = testConfig(srv.URL)

	got, err := runStatusCmd(t, "yaml", "job-1")
	require.NoError(t, err)

	var v map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(got), &v))
	assert.Equal(t, "job-1", v["job_id"])
	assert.Equal(t, "Queued", v["message"])
	assert.NotContains(t, v, "percent")
}

func TestStatusCmd_UnknownJob(t *testing.T) {
	srv := scrapeapitest.NewServer(t, "unused")
	resetCfg(t)
	cfg = testConfig(srv.URL)

	_, err := runStatusCmd(t, "text", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Job not found")
}

func TestWriteStatus_UnknownFormat(t *testing.T) {
	err := writeStatus(&bytes.Buffer{}, statusView{JobID: "job-1"}, "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown output format "xml"`)
}

func TestFormatStatus_NoTotal(t *testing.T) {
	var out bytes.Buffer
	formatStatus(&out, statusView{JobID: "job-1", Status: "running"})
	assert.Contains(t, out.String(), "Progress:  -")
}
