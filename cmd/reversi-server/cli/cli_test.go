package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"reversi/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reversi.db")
	var out bytes.Buffer

	require.NoError(t, Run([]string{"init", "-path", path}, &out))
	assert.Contains(t, out.String(), "Database initialized")

	out.Reset()
	require.NoError(t, Run([]string{"query", "-path", path}, &out))
	assert.Contains(t, out.String(), "No games found")

	store, err := storage.NewStore(path, false, nil)
	require.NoError(t, err)
	store.RecordNewGame(storage.GameRecord{
		GameID:        "0a1b2c3d-0000-4000-8000-000000000000",
		InitialToken:  "AA",
		BlackPlayerID: "black-player",
		BlackType:     1,
		WhitePlayerID: "white-player",
		WhiteType:     2,
		StartTimeUTC:  time.Now().UTC(),
	})
	store.RecordMove(storage.MoveRecord{
		GameID:      "0a1b2c3d-0000-4000-8000-000000000000",
		MoveNumber:  1,
		Move:        "d3",
		PlayerColor: "b",
		Source:      "human",
		MoveTimeUTC: time.Now().UTC(),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, store.Sync(ctx))
	require.NoError(t, store.Close())

	out.Reset()
	require.NoError(t, Run([]string{"query", "-path", path, "-gameId", "*"}, &out))
	assert.Contains(t, out.String(), "0a1b2c3d...")
	assert.Contains(t, out.String(), "ongoing")
	assert.Contains(t, out.String(), "Found 1 game(s)")

	out.Reset()
	require.NoError(t, Run([]string{"moves", "-path", path, "-gameId", "0a1b2c3d-0000-4000-8000-000000000000"}, &out))
	assert.Contains(t, out.String(), "d3")

	out.Reset()
	require.NoError(t, Run([]string{"delete", "-path", path}, &out))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestUsageErrors(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, Run(nil, &out))
	assert.Error(t, Run([]string{"user"}, &out))
	assert.Error(t, Run([]string{"init"}, &out))
	assert.Error(t, Run([]string{"moves", "-path", filepath.Join(t.TempDir(), "x.db")}, &out))
}
