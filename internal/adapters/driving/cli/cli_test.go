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

	"github.com/jasonmooney/mds-knowledge-capture/internal/adapters/driven/catalog/memory"
	"github.com/jasonmooney/mds-knowledge-capture/internal/core/domain"
	"github.com/jasonmooney/mds-knowledge-capture/internal/core/services"
	"github.com/jasonmooney/mds-knowledge-capture/internal/identity"
)

// setupCLI wires the package-level service vars to a controller backed
// by an in-memory catalog, restoring them when the test ends.
func setupCLI(t *testing.T) (*memory.Catalog, string) {
	t.Helper()

	root := t.TempDir()
	catalog := memory.NewCatalog()
	ctrl, err := services.NewRevisionController(
		filepath.Join(root, "current"),
		filepath.Join(root, "archive"),
		catalog,
	)
	require.NoError(t, err)

	revisionService = ctrl
	metadataCatalog = catalog
	t.Cleanup(func() {
		revisionService = nil
		metadataCatalog = nil
	})
	return catalog, root
}

// executeCommand runs the root command with args and captures output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return buf.String(), err
}

// writeBatch creates a payload file plus a batch descriptor file, and
// returns the batch file path.
func writeBatch(t *testing.T, root, filename, content, originURL string) string {
	t.Helper()

	payload := filepath.Join(root, "staging", filename)
	require.NoError(t, os.MkdirAll(filepath.Dir(payload), 0o755))
	require.NoError(t, os.WriteFile(payload, []byte(content), 0o644))

	hash, err := identity.HashFile(payload)
	require.NoError(t, err)

	batch := []domain.Candidate{{
		OriginURL:    originURL,
		Filename:     filename,
		FilePath:     payload,
		SizeBytes:    int64(len(content)),
		ContentHash:  hash,
		VersionLabel: "1.0",
	}}
	data, err := json.Marshal(batch)
	require.NoError(t, err)

	batchPath := filepath.Join(root, "batch.json")
	require.NoError(t, os.WriteFile(batchPath, data, 0o644))
	return batchPath
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "mdskc version dev")
}

func TestProcessCommand(t *testing.T) {
	_, root := setupCLI(t)
	batchPath := writeBatch(t, root, "mds_guide.pdf", "pdf bytes", "https://x/mds_guide.pdf")

	out, err := executeCommand(t, "process", batchPath)
	require.NoError(t, err)
	assert.Contains(t, out, "new")
	assert.Contains(t, out, "https://x/mds_guide.pdf")
	assert.Contains(t, out, "Placed 1 of 1 candidates.")
}

func TestProcessCommand_EmptyBatch(t *testing.T) {
	_, root := setupCLI(t)

	batchPath := filepath.Join(root, "batch.json")
	require.NoError(t, os.WriteFile(batchPath, []byte("[]"), 0o644))

	out, err := executeCommand(t, "process", batchPath)
	require.NoError(t, err)
	assert.Contains(t, out, "no candidates")
}

func TestProcessCommand_MissingBatchFile(t *testing.T) {
	setupCLI(t)

	_, err := executeCommand(t, "process", filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading batch file")
}

func TestProcessCommand_ReportsFailedCandidates(t *testing.T) {
	_, root := setupCLI(t)

	batch := []domain.Candidate{{
		OriginURL:   "https://x/ghost.pdf",
		Filename:    "ghost.pdf",
		FilePath:    filepath.Join(root, "nope", "ghost.pdf"),
		ContentHash: "deadbeef",
	}}
	data, err := json.Marshal(batch)
	require.NoError(t, err)
	batchPath := filepath.Join(root, "batch.json")
	require.NoError(t, os.WriteFile(batchPath, data, 0o644))

	out, err := executeCommand(t, "process", batchPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, out, "Placed 0 of 1 candidates.")
}

func TestInventoryCommand(t *testing.T) {
	_, root := setupCLI(t)

	out, err := executeCommand(t, "inventory")
	require.NoError(t, err)
	assert.Contains(t, out, "No current documents.")

	batchPath := writeBatch(t, root, "mds_guide.pdf", "pdf bytes", "https://x/mds_guide.pdf")
	_, err = executeCommand(t, "process", batchPath)
	require.NoError(t, err)

	out, err = executeCommand(t, "inventory")
	require.NoError(t, err)
	assert.Contains(t, out, "https://x/mds_guide.pdf")
	assert.Contains(t, out, "Total: 1 documents")
}

func TestHistoryCommand(t *testing.T) {
	_, root := setupCLI(t)

	out, err := executeCommand(t, "history", "https://x/unknown.pdf")
	require.NoError(t, err)
	assert.Contains(t, out, "No records for origin")

	batchPath := writeBatch(t, root, "mds_guide.pdf", "pdf bytes", "https://x/mds_guide.pdf")
	_, err = executeCommand(t, "process", batchPath)
	require.NoError(t, err)

	out, err = executeCommand(t, "history", "https://x/mds_guide.pdf")
	require.NoError(t, err)
	assert.Contains(t, out, "Revision history for https://x/mds_guide.pdf")
	assert.Contains(t, out, "Total: 1 versions")
}

func TestAttemptsCommand(t *testing.T) {
	catalog, _ := setupCLI(t)

	out, err := executeCommand(t, "attempts")
	require.NoError(t, err)
	assert.Contains(t, out, "No download attempts recorded.")

	require.NoError(t, catalog.LogAttempt(context.Background(), domain.DownloadAttempt{
		OriginURL:    "https://x/mds_guide.pdf",
		Status:       domain.StatusIOFailure,
		ErrorMessage: "disk full",
	}))

	out, err = executeCommand(t, "attempts")
	require.NoError(t, err)
	assert.Contains(t, out, "io_failure")
	assert.Contains(t, out, "disk full")
	assert.Contains(t, out, "Total: 1 attempts")
}

func TestCleanupCommand(t *testing.T) {
	setupCLI(t)

	out, err := executeCommand(t, "cleanup", "--days", "30")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 0 archived files older than 30 days.")
}
