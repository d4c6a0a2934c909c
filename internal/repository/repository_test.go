package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelzeko/dengue-watch/internal/entities"
	"github.com/abelzeko/dengue-watch/internal/logging"
)

func newTestRepo(t *testing.T) *SQLRepository {
	t.Helper()
	repo, err := NewSQLRepository(DriverSQLite, filepath.Join(t.TempDir(), "test.db"), logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := NewSQLRepository("oracle", "", logging.Nop())
	assert.ErrorContains(t, err, "unsupported")
}

func TestFeedbackRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)

	id1, err := repo.SaveFeedback(ctx, entities.Feedback{City: "Lahore", Message: "Please fog the canal", CreatedAt: base})
	require.NoError(t, err)
	id2, err := repo.SaveFeedback(ctx, entities.Feedback{City: "Karachi", Message: "Thanks", CreatedAt: base.Add(time.Minute)})
	require.NoError(t, err)
	_, err = repo.SaveFeedback(ctx, entities.Feedback{City: "Lahore", Message: "Still mosquitoes", CreatedAt: base.Add(2 * time.Minute)})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	all, err := repo.ListFeedback(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Still mosquitoes", all[0].Message)

	lahore, err := repo.ListFeedback(ctx, "Lahore", 10)
	require.NoError(t, err)
	require.Len(t, lahore, 2)
	assert.Equal(t, id1, lahore[1].ID)
	assert.True(t, lahore[1].CreatedAt.Equal(base))

	limited, err := repo.ListFeedback(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSubscribers(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, repo.AddSubscriber(ctx, entities.Subscriber{ChatID: 42, UserName: "ayesha", SubscribedAt: base}))
	require.NoError(t, repo.AddSubscriber(ctx, entities.Subscriber{ChatID: 7, UserName: "bilal", SubscribedAt: base.Add(time.Hour)}))
	require.NoError(t, repo.AddSubscriber(ctx, entities.Subscriber{ChatID: 42, UserName: "ayesha_q", SubscribedAt: base.Add(2 * time.Hour)}))

	subs, err := repo.ListSubscribers(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, int64(42), subs[0].ChatID)
	assert.Equal(t, "ayesha_q", subs[0].UserName)

	removed, err := repo.RemoveSubscriber(ctx, 42)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.RemoveSubscriber(ctx, 42)
	require.NoError(t, err)
	assert.False(t, removed)

	subs, err = repo.ListSubscribers(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, int64(7), subs[0].ChatID)
}

func TestRebind(t *testing.T) {
	pg := &SQLRepository{driver: DriverPostgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", pg.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	lite := &SQLRepository{driver: DriverSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}
