package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelzeko/dengue-watch/internal/cases"
	"github.com/abelzeko/dengue-watch/internal/entities"
)

func newTestStore(idle time.Duration) (*Store, *time.Time) {
	store := NewStore(idle)
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	n := 0
	store.newID = func() string {
		n++
		return fmt.Sprintf("session-%d", n)
	}
	return store, &now
}

func TestNewSessionStartsWithSeed(t *testing.T) {
	store, _ := newTestStore(time.Minute)
	sess := store.Create()

	var rows []entities.CaseRow
	require.NoError(t, sess.WithCases(func(tb *cases.Table) error {
		rows = tb.Rows()
		return nil
	}))
	assert.Equal(t, cases.Seed(), rows)
	assert.Empty(t, sess.Predictions())
	assert.Empty(t, sess.Detections())
}

func TestSessionsDoNotShareState(t *testing.T) {
	store, _ := newTestStore(time.Minute)
	a := store.Create()
	b := store.Create()

	require.NoError(t, a.WithCases(func(tb *cases.Table) error {
		return tb.Upsert(entities.CaseEntry{Location: "Other", Year: 2024, Month: time.May, Cases: 3})
	}))
	a.AddPrediction(entities.Prediction{RiskLevel: entities.RiskHigh})

	require.NoError(t, b.WithCases(func(tb *cases.Table) error {
		assert.Equal(t, 3, tb.Len())
		return nil
	}))
	assert.Empty(t, b.Predictions())
}

func TestPredictionsAreMostRecentFirst(t *testing.T) {
	store, _ := newTestStore(time.Minute)
	sess := store.Create()
	for _, loc := range []string{"Gulberg", "Defence", "DHA"} {
		sess.AddPrediction(entities.Prediction{Reading: entities.EnvironmentalReading{Location: loc}})
	}
	sess.AddDetection(entities.WaterDetection{Filename: "a.png"})
	sess.AddDetection(entities.WaterDetection{Filename: "b.png"})

	got := sess.Predictions()
	require.Len(t, got, 3)
	assert.Equal(t, "DHA", got[0].Reading.Location)
	assert.Equal(t, "Gulberg", got[2].Reading.Location)
	assert.Equal(t, "b.png", sess.Detections()[0].Filename)
}

func TestGetExpiresIdleSessions(t *testing.T) {
	store, now := newTestStore(30 * time.Minute)
	sess := store.Create()

	*now = now.Add(20 * time.Minute)
	_, ok := store.Get(sess.ID)
	require.True(t, ok, "activity within the timeout keeps the session")

	*now = now.Add(29 * time.Minute)
	_, ok = store.Get(sess.ID)
	require.True(t, ok)

	*now = now.Add(30 * time.Minute)
	_, ok = store.Get(sess.ID)
	assert.False(t, ok)
	assert.Zero(t, store.Len())
}

func TestDetachedSessionIsNotKept(t *testing.T) {
	store, _ := newTestStore(time.Minute)
	sess := store.Detached()

	require.NoError(t, sess.WithCases(func(tb *cases.Table) error {
		assert.Equal(t, cases.Seed(), tb.Rows())
		return nil
	}))
	assert.Zero(t, store.Len())
	_, ok := store.Get(sess.ID)
	assert.False(t, ok)
}

func TestGetOrCreate(t *testing.T) {
	store, _ := newTestStore(time.Minute)

	first, created := store.GetOrCreate("")
	assert.True(t, created)

	again, created := store.GetOrCreate(first.ID)
	assert.False(t, created)
	assert.Same(t, first, again)

	other, created := store.GetOrCreate("unknown")
	assert.True(t, created)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestSweep(t *testing.T) {
	store, now := newTestStore(10 * time.Minute)
	old := store.Create()
	*now = now.Add(8 * time.Minute)
	fresh := store.Create()

	*now = now.Add(5 * time.Minute)
	assert.Equal(t, 1, store.Sweep())

	_, ok := store.Get(old.ID)
	assert.False(t, ok)
	_, ok = store.Get(fresh.ID)
	assert.True(t, ok)
}

func TestConcurrentUpserts(t *testing.T) {
	store := NewStore(time.Hour)
	sess := store.Create()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := sess.WithCases(func(tb *cases.Table) error {
				return tb.Upsert(entities.CaseEntry{Location: fmt.Sprintf("Block %d", i%5), Year: 2024, Month: time.August, Cases: i})
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	require.NoError(t, sess.WithCases(func(tb *cases.Table) error {
		assert.Equal(t, 3+5, tb.Len())
		return nil
	}))
}
