//go:build integration

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emanueledman/fixa-admin/internal/database/dbtest"
	"github.com/emanueledman/fixa-admin/internal/i18n"
	"github.com/emanueledman/fixa-admin/internal/models"
)

func TestProblemService_Postgres(t *testing.T) {
	pool, _ := dbtest.Postgres(t)
	ctx := context.Background()
	svc := NewProblemService(pool, zap.NewNop().Sugar())
	viewer := "resp-" + uuid.NewString()

	first, err := svc.Insert(ctx, models.Problem{Title: "Buraco", Category: "Estradas", Urgency: models.UrgencyHigh, ResponsibleID: viewer})
	require.NoError(t, err)
	assert.EqualValues(t, 1, first.Version)
	_, err = svc.Insert(ctx, models.Problem{Title: "Lixo", ResponsibleID: viewer})
	require.NoError(t, err)
	_, err = svc.Insert(ctx, models.Problem{Title: "Alheio", ResponsibleID: "someone-else"})
	require.NoError(t, err)

	list, err := svc.ListByResponsible(ctx, viewer)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Buraco", list[0].Title, "arrival order")

	updated, err := svc.UpdateStatus(ctx, viewer, first.ID, "Em Andamento", &first.Version)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	assert.EqualValues(t, 2, updated.Version)

	_, err = svc.UpdateStatus(ctx, viewer, first.ID, "Resolved", &first.Version)
	assert.ErrorIs(t, err, ErrConflict)

	title := "Buraco grande"
	patched, err := svc.UpdateFields(ctx, viewer, first.ID, models.ProblemPatch{Title: &title}, nil)
	require.NoError(t, err)
	assert.Equal(t, title, patched.Title)
	assert.Equal(t, "Estradas", patched.Category, "untouched columns survive")

	_, err = svc.UpdateStatus(ctx, "someone-else", first.ID, "Resolved", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReportService_Postgres(t *testing.T) {
	pool, _ := dbtest.Postgres(t)
	ctx := context.Background()
	svc := NewReportService(pool, zap.NewNop().Sugar())
	viewer := "resp-" + uuid.NewString()
	now := time.Now()

	entries := []models.ReportEntry{
		{ProblemID: "a", Category: "Água", Status: models.StatusPending, Urgency: models.UrgencyHigh, ResponsibleID: viewer, CreatedAt: now.Add(-24 * time.Hour).UnixMilli()},
		{ProblemID: "b", Category: "Água", Status: models.StatusResolved, Urgency: models.UrgencyLow, ResponsibleID: viewer, CreatedAt: now.Add(-48 * time.Hour).UnixMilli()},
		{ProblemID: "c", Category: "Luz", Status: models.StatusPending, Urgency: models.UrgencyHigh, ResponsibleID: viewer, CreatedAt: now.Add(-20 * 24 * time.Hour).UnixMilli()},
	}
	for _, e := range entries {
		require.NoError(t, svc.Record(ctx, e))
	}

	agg, err := svc.Build(ctx, viewer, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, agg.Total)
	assert.Equal(t, 1, agg.ByStatus[models.StatusResolved])
	assert.Equal(t, []models.CategoryDistribution{{Category: "Água", Count: 2}}, agg.ByCategory)

	agg, err = svc.Build(ctx, viewer, 30)
	require.NoError(t, err)
	assert.Equal(t, 3, agg.Total)
}

func TestResponsibleService_RedisCache(t *testing.T) {
	pool, _ := dbtest.Postgres(t)
	rdb := dbtest.Redis(t)
	ctx := context.Background()
	svc := NewResponsibleService(pool, rdb, zap.NewNop().Sugar())

	created, err := svc.Create(ctx, models.Responsible{Name: "Ana", Email: "ana-" + uuid.NewString() + "@example.com", IsResponsible: true}, "s3cret")
	require.NoError(t, err)

	name, err := svc.DisplayName(ctx, created.ID, i18n.PtBR)
	require.NoError(t, err)
	assert.Equal(t, "Ana", name)

	cached, err := rdb.Get(ctx, nameKey(created.ID)).Result()
	require.NoError(t, err)
	assert.Equal(t, "Ana", cached)

	_, err = svc.Authenticate(ctx, created.Email, "s3cret")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, created.Email, "wrong")
	assert.True(t, errors.Is(err, ErrUnauthorized))
}
