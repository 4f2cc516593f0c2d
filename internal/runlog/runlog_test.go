package runlog

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteRecorder_Lifecycle(t *testing.T) {
	ctx := context.Background()
	rec, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer rec.Close()

	okID, err := rec.Start(ctx, "/mail/new/a", "rakuten-pay")
	require.NoError(t, err)
	require.NotEmpty(t, okID)
	require.NoError(t, rec.Succeed(ctx, okID, 3))

	failID, err := rec.Start(ctx, "/mail/new/b", "gemini")
	require.NoError(t, err)
	rec.Fail(ctx, failID, errors.New("no transactions found"))

	runs, err := rec.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	byID := map[string]Run{}
	for _, r := range runs {
		byID[r.ID] = r
	}

	ok := byID[okID]
	assert.Equal(t, StatusSuccess, ok.Status)
	assert.Equal(t, 3, ok.Transactions)
	assert.Equal(t, "rakuten-pay", ok.Scheme)
	require.NotNil(t, ok.FinishedAt)

	failed := byID[failID]
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "no transactions found", failed.Error)
	assert.Equal(t, "/mail/new/b", failed.DocumentID)
}

func TestSQLiteRecorder_ReopenKeepsRuns(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	rec, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	_, err = rec.Start(ctx, "doc", "ocbc")
	require.NoError(t, err)
	require.NoError(t, rec.Close())

	rec, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer rec.Close()

	runs, err := rec.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusRunning, runs[0].Status)
	assert.Nil(t, runs[0].FinishedAt)
}

func TestErrorMessage_Truncates(t *testing.T) {
	long := errors.New(strings.Repeat("x", maxErrorLen+50))

	assert.Len(t, errorMessage(long), maxErrorLen)
	assert.Equal(t, "", errorMessage(nil))
}

func TestNop(t *testing.T) {
	var rec Recorder = Nop{}

	id, err := rec.Start(context.Background(), "doc", "ocbc")
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.NoError(t, rec.Succeed(context.Background(), id, 1))
	assert.NoError(t, rec.Close())
}
