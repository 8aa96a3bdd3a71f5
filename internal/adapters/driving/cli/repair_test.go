package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

func TestRepairCmds_ServiceNotConfigured(t *testing.T) {
	cleanup := clearServices()
	defer cleanup()

	for _, args := range [][]string{
		{"repair", "orphans"},
		{"repair", "verify"},
		{"repair", "stale"},
	} {
		_, err := execute(t, args...)
		require.Error(t, err, args)
		assert.Contains(t, err.Error(), "repair service not configured", args)
	}
}

func TestRepairOrphansCmd_Find(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.repair.orphans = &domain.OrphanReport{
		Scanned:           12,
		OrphanIDs:         []string{"gone_chunk_0", "gone_chunk_1"},
		OrphanDocumentIDs: []string{"gone"},
	}

	out, err := execute(t, "repair", "orphans")

	require.NoError(t, err)
	assert.Contains(t, out, "Scanned 12 chunks, 2 orphaned from 1 missing documents.")
	assert.Contains(t, out, "  gone\n")
	assert.Contains(t, out, "Run with --purge to delete them.")
}

func TestRepairOrphansCmd_Purge(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.repair.purge = &domain.PurgeReport{
		OrphanReport: domain.OrphanReport{Scanned: 5, OrphanIDs: []string{"a", "b", "c"}},
		Deleted:      3,
		Batches:      2,
	}

	out, err := execute(t, "repair", "orphans", "--purge", "--batch-size", "2")

	require.NoError(t, err)
	assert.Equal(t, 2, ts.repair.gotBatchSize)
	assert.Contains(t, out, "Deleted 3 orphaned chunks in 2 batches.")
	assert.NotContains(t, out, "Run with --purge")
}

func TestRepairOrphansCmd_PurgePartialFailure(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.repair.purge = &domain.PurgeReport{OrphanReport: domain.OrphanReport{OrphanIDs: []string{"a", "b"}}, Deleted: 1, Batches: 1}
	ts.repair.err = errors.New("index offline")

	out, err := execute(t, "repair", "orphans", "--purge")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to purge orphans: index offline")
	assert.Contains(t, out, "Deleted 1 orphaned chunks in 1 batches.")
}

func TestRepairOrphansCmd_XLSX(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.repair.orphans = &domain.OrphanReport{Scanned: 1}
	path := filepath.Join(t.TempDir(), "orphans.xlsx")

	out, err := execute(t, "repair", "orphans", "--xlsx", path)

	require.NoError(t, err)
	assert.Same(t, ts.repair.orphans, ts.reports.orphans)
	assert.Contains(t, out, "Report written to "+path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "orphans", string(data))
}

func TestRepairVerifyCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.repair.verify = &domain.VerifyReport{Documents: []domain.ContentMatch{
		{DocumentID: "doc-1", Title: "Retail Rules", Checked: 4, Matched: 3, MismatchedIDs: []string{"doc-1_chunk_2"}},
		{DocumentID: "doc-2", Skipped: "no indexed chunks"},
	}}

	out, err := execute(t, "repair", "verify", "doc-1", "doc-2", "--sample", "5")

	require.NoError(t, err)
	assert.Equal(t, []string{"doc-1", "doc-2"}, ts.repair.gotIDs)
	assert.Equal(t, 5, ts.repair.gotSample)
	assert.Contains(t, out, "3/4 chunks match (75%)")
	assert.Contains(t, out, "mismatch: doc-1_chunk_2")
	assert.Contains(t, out, "skipped: no indexed chunks")
	assert.Contains(t, out, "Overall: 3/4 chunks match (75.0%)")
}

func TestRepairVerifyCmd_XLSXWithoutWriter(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.repair.verify = &domain.VerifyReport{}
	reportWriter = nil

	_, err := execute(t, "repair", "verify", "--xlsx", filepath.Join(t.TempDir(), "v.xlsx"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "report writer not configured")
}

func TestRepairStaleCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "repair", "stale")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, ts.repair.gotOlderThan)
	assert.Contains(t, out, "No documents stuck for more than 30m0s.")

	ts.repair.stale = &domain.StaleReport{DocumentIDs: []string{"doc-7"}, OlderThan: time.Hour}
	out, err = execute(t, "repair", "stale", "--older-than", "1h")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, ts.repair.gotOlderThan)
	assert.Contains(t, out, "Marked 1 documents FAILED:")
	assert.Contains(t, out, "  doc-7")
}
