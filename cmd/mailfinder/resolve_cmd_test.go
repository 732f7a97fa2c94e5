package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadagent/mailfinder/internal/domain"
)

func runCLI(t *testing.T, args ...string) (resolveOutput, error) {
	t.Helper()
	var stdout bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	var out resolveOutput
	if err == nil {
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	}
	return out, err
}

func TestResolve_MockRanked(t *testing.T) {
	out, err := runCLI(t, "resolve", "--first", "Jane", "--last", "Doe",
		"--domain", "https://www.example.com", "--mock", "--strategy", "ranked", "--api-key", "")
	require.NoError(t, err)

	assert.True(t, out.Found)
	assert.Equal(t, "jane.doe@example.com", out.Email)
	assert.Equal(t, "ok", out.Status)
	assert.Equal(t, "first.last", out.Pattern)
}

func TestResolve_NoAPIKey(t *testing.T) {
	out, err := runCLI(t, "resolve", "--first", "Jane", "--last", "Doe",
		"--domain", "example.com", "--company", "Example Corp", "--api-key", "")
	require.NoError(t, err)

	assert.False(t, out.Found)
	assert.Equal(t, domain.ReasonUnconfigured, out.Reason)
	assert.Contains(t, out.FallbackURL, "Example+Corp")
}

func TestResolve_MissingFlags(t *testing.T) {
	_, err := runCLI(t, "resolve", "--first", "Jane", "--domain", "example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--last is required")
}

func TestResolve_UnknownStrategy(t *testing.T) {
	_, err := runCLI(t, "resolve", "--first", "Jane", "--last", "Doe",
		"--domain", "example.com", "--mock", "--strategy", "fastest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown resolver strategy")
}
