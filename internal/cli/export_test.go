package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strataboard/strata/internal/persist"
)

func TestExportToStdout(t *testing.T) {
	dbPath := seedTestDatabase(t)

	buf := &bytes.Buffer{}
	cmd := NewExportCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dbPath, "doc-1"})

	require.NoError(t, cmd.Execute())

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, float64(1), doc["version"])
}

func TestExportToFile(t *testing.T) {
	dbPath := seedTestDatabase(t)
	outPath := filepath.Join(t.TempDir(), "export.json")

	cmd := NewExportCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{dbPath, "doc-1", "--out", outPath})

	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc, "layers")
}

func TestExportNormalize(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "strata.db")
	adapter, err := persist.Open(dbPath)
	require.NoError(t, err)

	// Out-of-range brightness; --normalize must clamp it.
	payload := []byte(`{"version": 1, "layers": [{"brightness": 42, "order": 0}]}`)
	require.NoError(t, adapter.SaveDocument(context.Background(), "doc-1", payload, 1))
	require.NoError(t, adapter.Close())

	buf := &bytes.Buffer{}
	cmd := NewExportCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dbPath, "doc-1", "--normalize"})

	require.NoError(t, cmd.Execute())

	var doc struct {
		Layers []struct {
			Brightness float64 `json:"brightness"`
		} `json:"layers"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Layers, 1)
	assert.Equal(t, 1.0, doc.Layers[0].Brightness)
}

func TestExportMissingDocument(t *testing.T) {
	dbPath := seedTestDatabase(t)

	cmd := NewExportCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{dbPath, "absent"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
