package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareDSN(t *testing.T) {
	assert.Equal(t, "runs.db?_busy_timeout=30000&_synchronous=NORMAL", PrepareDSN("runs.db"))
	assert.Equal(t, "file:x?mode=memory&_busy_timeout=30000&_synchronous=NORMAL", PrepareDSN("file:x?mode=memory"))
	assert.Equal(t, "runs.db?_busy_timeout=5&_synchronous=NORMAL", PrepareDSN("runs.db?_busy_timeout=5"))
}

func TestOpen_SettingsApplyToEveryConnection(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	first, err := db.Connx(ctx)
	require.NoError(t, err)
	defer first.Close()
	second, err := db.Connx(ctx)
	require.NoError(t, err)
	defer second.Close()

	for _, conn := range []*sqlx.Conn{first, second} {
		var timeout int
		require.NoError(t, conn.GetContext(ctx, &timeout, "PRAGMA busy_timeout"))
		assert.Equal(t, 30000, timeout)
	}
}
