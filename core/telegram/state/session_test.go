package state

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDeleter struct {
	mu      sync.Mutex
	deleted []int
	fail    map[int]bool
}

func (d *recordingDeleter) Delete(_ context.Context, _ int64, id int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail[id] {
		return errors.New("message to delete not found")
	}
	d.deleted = append(d.deleted, id)
	return nil
}

func TestDrainDeletesAndEmpties(t *testing.T) {
	s := newSession(10, "menu")
	s.Track(TrailScreen, 1, 2, 3)
	del := &recordingDeleter{fail: map[int]bool{2: true}}

	res := s.Drain(context.Background(), TrailScreen, del)

	assert.Equal(t, DrainResult{Deleted: 2, Ignored: 1}, res)
	assert.Equal(t, []int{1, 3}, del.deleted)
	assert.Empty(t, s.Tracked(TrailScreen))
}

func TestDrainAllOrder(t *testing.T) {
	s := newSession(10, "menu")
	s.Track(TrailAdmin, 30)
	s.Track(TrailResults, 20)
	s.Track(TrailScreen, 10)
	del := &recordingDeleter{}

	res := s.DrainAll(context.Background(), del)

	assert.Equal(t, 3, res.Deleted)
	assert.Equal(t, []int{10, 20, 30}, del.deleted)
	for _, tr := range Trails {
		assert.Empty(t, s.Tracked(tr), tr.String())
	}
}

func TestGenerationAdvances(t *testing.T) {
	s := newSession(1, "menu")
	g0 := s.Generation(TrailResults)

	s.Track(TrailResults, 5)
	g1 := s.Generation(TrailResults)
	require.Greater(t, g1, g0)

	s.Drain(context.Background(), TrailResults, &recordingDeleter{})
	assert.Greater(t, s.Generation(TrailResults), g1)

	// Other trails keep their own counters.
	assert.Zero(t, s.Generation(TrailAdmin))
	s.Track(TrailResults)
	assert.Equal(t, g1+1, s.Generation(TrailResults), "empty track must not advance")
}

func TestWipeKeepsAdminAndTrails(t *testing.T) {
	s := newSession(1, "menu")
	s.Admin = true
	s.Put("name", "Abel")
	s.Track(TrailScreen, 7)

	s.Wipe()

	assert.True(t, s.Admin)
	assert.Empty(t, s.Scratch)
	assert.Equal(t, []int{7}, s.Tracked(TrailScreen))
	assert.True(t, s.IsTracked(7))
	assert.False(t, s.IsTracked(8))
}

func TestScratchHelpers(t *testing.T) {
	s := &Session{}
	s.Put("name", "Abel")
	s.Put("n", 3)

	assert.Equal(t, "Abel", s.String("name"))
	assert.Empty(t, s.String("n"))
	v, ok := s.Value("n")
	require.True(t, ok)
	assert.Equal(t, 3, v)

	s.Forget("name")
	assert.Empty(t, s.String("name"))
}

func TestStoreLazyCreate(t *testing.T) {
	st := NewStore("menu")
	_, ok := st.Peek(42)
	require.False(t, ok)

	var wg sync.WaitGroup
	got := make([]*Session, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = st.Get(42)
		}(i)
	}
	wg.Wait()

	for _, s := range got {
		assert.Same(t, got[0], s)
	}
	assert.Equal(t, 1, st.Len())
	assert.Equal(t, State("menu"), got[0].State)
	assert.Equal(t, int64(42), got[0].ChatID)
}
