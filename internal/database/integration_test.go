//go:build integration

package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emanueledman/fixa-admin/internal/database"
	"github.com/emanueledman/fixa-admin/internal/database/dbtest"
)

func TestMigrationStatus_AllApplied(t *testing.T) {
	_, dsn := dbtest.Postgres(t)

	states, err := database.MigrationStatus(context.Background(), dsn)
	require.NoError(t, err)
	require.Len(t, states, 5)
	for _, s := range states {
		assert.True(t, s.Applied, s.Source)
	}

	applied, err := database.Migrate(context.Background(), dsn)
	require.NoError(t, err)
	assert.Zero(t, applied)
}

func TestListener_ReceivesProblemChanges(t *testing.T) {
	pool, _ := dbtest.Postgres(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payloads := make(chan string, 4)
	done := make(chan error, 1)
	l := database.NewListener(pool, database.ProblemsChannel, zap.NewNop().Sugar())
	go func() { done <- l.Listen(ctx, func(p string) { payloads <- p }) }()

	// LISTEN is issued asynchronously; keep inserting until one is seen.
	deadline := time.After(10 * time.Second)
	for i := 0; ; i++ {
		_, err := pool.Exec(ctx,
			`INSERT INTO problems (id, title, responsible_id, created_at) VALUES ($1, 'Buraco', 'resp-listen', 0)`,
			"listen-"+time.Now().Format("150405.000000"))
		require.NoError(t, err)

		select {
		case p := <-payloads:
			assert.Equal(t, "resp-listen", p)
			cancel()
			require.NoError(t, <-done)
			return
		case <-time.After(200 * time.Millisecond):
		case <-deadline:
			t.Fatal("no notification received")
		}
	}
}
