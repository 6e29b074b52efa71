package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-backend/internal/analyses"
	"portfolio-backend/internal/bootstrap"
	"portfolio-backend/internal/features"
	"portfolio-backend/internal/shared/config"
)

func memoryDeps() deps {
	return deps{
		loadConfig: func() config.Config { return config.Config{Env: "dev", LogLevel: "error"} },
		build:      bootstrap.Build,
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(memoryDeps())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootRegistersSubcommands(t *testing.T) {
	cmd := newRootCmd(memoryDeps())
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "analyze", "preview", "extract"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("output"))
}

func TestAnalyzePrintsCompletedJobAsJSON(t *testing.T) {
	out, err := execute(t, "analyze", "acme", "-o", "json")
	require.NoError(t, err)

	var res analyzeResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, analyses.StatusCompleted, res.Job.Status)
	assert.Equal(t, 100, res.Job.Progress)
	assert.Len(t, res.Recommendations, res.Job.RecommendationsGenerated)
	assert.NotEmpty(t, res.Recommendations)
}

func TestAnalyzeTextShowsActivity(t *testing.T) {
	out, err := execute(t, "analyze", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "Analysis queued")
	assert.Contains(t, out, "total annual savings")
}

func TestAnalyzeUnknownCompany(t *testing.T) {
	_, err := execute(t, "analyze", "nobody")
	require.Error(t, err)
}

func TestPreviewListsTags(t *testing.T) {
	out, err := execute(t, "preview", "sw-asana", "-o", "json")
	require.NoError(t, err)

	var tags []features.Tag
	require.NoError(t, json.Unmarshal([]byte(out), &tags))
	require.NotEmpty(t, tags)
	for _, tag := range tags {
		assert.Equal(t, "sw-asana", tag.SoftwareID)
	}
}

func TestExtractSummarizesCompany(t *testing.T) {
	out, err := execute(t, "extract", "acme", "--min-confidence", "0.6", "-o", "json")
	require.NoError(t, err)

	var summary features.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	_, assets := bootstrap.DemoPortfolio()
	assert.Equal(t, len(assets), summary.SoftwareTotal)
	assert.Equal(t, len(assets), summary.SoftwareProcessed)
	assert.Positive(t, summary.TagsWritten)
}

func TestRejectsUnknownOutputFormat(t *testing.T) {
	_, err := execute(t, "preview", "sw-asana", "-o", "yaml")
	require.Error(t, err)
}
