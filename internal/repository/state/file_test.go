package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/redalert/internal/domain/alarm"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound for missing file.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "missing.json"))
	s, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, s)
}

// TestFileRepository_SaveLoad_Roundtrip ensures Save followed by Load returns equal snapshot.
func TestFileRepository_SaveLoad_Roundtrip(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "state.json")
	repo := NewFileRepository(file)

	want := &Snapshot{
		Alarm: &alarm.State{
			Status:         alarm.Active,
			Timestamp:      time.Now().UTC().Truncate(time.Millisecond),
			LastAlertID:    133579998070000000,
			LastAlertTitle: "ירי רקטות וטילים",
		},
		SeenIDs: []int64{1, 133579998070000000},
	}

	require.NoError(t, repo.Save(context.Background(), want))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, want.Alarm.Status, got.Alarm.Status)
	require.True(t, want.Alarm.Timestamp.Equal(got.Alarm.Timestamp))
	require.Equal(t, want.Alarm.LastAlertID, got.Alarm.LastAlertID)
	require.Equal(t, want.Alarm.LastAlertTitle, got.Alarm.LastAlertTitle)
	require.Equal(t, want.SeenIDs, got.SeenIDs)

	_, err = os.Stat(file + ".tmp")
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestFileRepository_Defaults saves an empty snapshot.
func TestFileRepository_Defaults(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, repo.Save(context.Background(), nil))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, alarm.Inactive, got.Alarm.Status)
	require.True(t, got.Alarm.Timestamp.IsZero())
	require.Empty(t, got.SeenIDs)
}

// TestFileRepository_Corrupted reports undecodable files.
func TestFileRepository_Corrupted(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(file, []byte("{not json"), 0o600))

	_, err := NewFileRepository(file).Load(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}
