package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidScenario(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"testdata/smoke.yaml"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "✓ testdata/smoke.yaml (2 step(s))")
}

func TestValidateValidScenarioJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"testdata/smoke.yaml"})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string             `json:"status"`
		Data   []ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.True(t, resp.Data[0].Valid)
	assert.Equal(t, 2, resp.Data[0].Steps)
}

func TestValidateInvalidScenario(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"testdata/smoke.yaml", "testdata/invalid.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 scenario(s) invalid")

	output := buf.String()
	assert.Contains(t, output, "✓ testdata/smoke.yaml")
	assert.Contains(t, output, "✗ testdata/invalid.yaml")
	assert.Contains(t, output, "E101")
}

func TestValidateInvalidScenarioJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"testdata/invalid.yaml"})

	err := cmd.Execute()
	require.Error(t, err)

	var resp struct {
		Status string             `json:"status"`
		Data   []ValidationResult `json:"data"`
		Error  *CLIError          `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidScenario, resp.Error.Code)
	require.Len(t, resp.Data, 1)
	assert.False(t, resp.Data[0].Valid)
	assert.NotEmpty(t, resp.Data[0].Errors)
}

func TestValidateMalformedYAML(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"testdata/broken.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, buf.String(), "✗ testdata/broken.yaml")
}

func TestValidateMissingFile(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"testdata/nope.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, buf.String(), "✗ testdata/nope.yaml")
}

func TestValidateRequiresArgs(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	require.Error(t, cmd.Execute())
}
