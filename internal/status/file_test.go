package status_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshgate/internal/membership"
	"meshgate/internal/status"
)

func TestFileSink(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifacts", "status.json")
	sink := status.NewFileSink(path)
	assert.Equal(t, "file", sink.Name())

	snap := status.Snapshot{
		Epoch: status.EpochSummary{ID: 2, SecretHash: "sha256:abcdef0123456789"},
		Nodes: map[string]status.NodeStatus{
			"node-a": {Membership: membership.StatusDenied, Reason: membership.ReasonStale},
		},
	}

	t.Run("writes indented json", func(t *testing.T) {
		require.NoError(t, sink.Write(context.Background(), snap))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		var got map[string]any
		require.NoError(t, json.Unmarshal(raw, &got))
		epochDoc := got["epoch"].(map[string]any)
		assert.EqualValues(t, 2, epochDoc["id"])
		assert.Contains(t, string(raw), "\n  \"epoch\"")
	})

	t.Run("overwrites and leaves no temp files", func(t *testing.T) {
		snap.Epoch.ID = 3
		require.NoError(t, sink.Write(context.Background(), snap))

		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "status.json", entries[0].Name())
	})

	t.Run("canceled context skips the write", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, sink.Write(ctx, snap), context.Canceled)
	})

	t.Run("unwritable directory fails", func(t *testing.T) {
		blocker := filepath.Join(dir, "blocker")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
		bad := status.NewFileSink(filepath.Join(blocker, "status.json"))
		assert.Error(t, bad.Write(context.Background(), snap))
	})
}
