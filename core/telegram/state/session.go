package state

import (
	"context"
	"slices"
	"sync"
)

// State identifies a finite-state-machine step used in conversations.
type State string

// Trail partitions the tracked message ids of a session.
type Trail int

const (
	// TrailScreen holds the regular screens.
	TrailScreen Trail = iota
	// TrailResults holds result lookups, which expire on their own.
	TrailResults
	// TrailAdmin holds prompts and replies of the admin flow.
	TrailAdmin

	trailCount
)

// Trails lists every trail in drain order.
var Trails = [...]Trail{TrailScreen, TrailResults, TrailAdmin}

func (t Trail) String() string {
	switch t {
	case TrailScreen:
		return "screen"
	case TrailResults:
		return "results"
	case TrailAdmin:
		return "admin"
	}
	return "unknown"
}

// Deleter removes a message from a chat.
type Deleter interface {
	Delete(ctx context.Context, chatID int64, messageID int) error
}

// DrainResult reports what a drain did. Failed deletions are counted in
// Ignored and otherwise dropped; callers may discard the result.
type DrainResult struct {
	Deleted int
	Ignored int
}

// Add sums two results.
func (r DrainResult) Add(o DrainResult) DrainResult {
	return DrainResult{Deleted: r.Deleted + o.Deleted, Ignored: r.Ignored + o.Ignored}
}

// Session is the conversation record of one chat.
type Session struct {
	mu sync.Mutex

	ChatID  int64
	State   State
	Scratch map[string]any
	// Admin survives Wipe. Only an explicit logout clears it.
	Admin bool

	trails [trailCount][]int
	gens   [trailCount]uint64
}

func newSession(chatID int64, initial State) *Session {
	return &Session{
		ChatID:  chatID,
		State:   initial,
		Scratch: make(map[string]any),
	}
}

// Lock acquires exclusive access to the session.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session.
func (s *Session) Unlock() { s.mu.Unlock() }

// Track appends message ids to a trail and advances its generation.
func (s *Session) Track(t Trail, ids ...int) {
	if len(ids) == 0 {
		return
	}
	s.trails[t] = append(s.trails[t], ids...)
	s.gens[t]++
}

// Tracked returns a copy of the ids currently held in the trail.
func (s *Session) Tracked(t Trail) []int {
	return slices.Clone(s.trails[t])
}

// IsTracked reports whether id is held in any trail.
func (s *Session) IsTracked(id int) bool {
	for _, t := range Trails {
		if slices.Contains(s.trails[t], id) {
			return true
		}
	}
	return false
}

// Generation returns the change counter of the trail. Every Track and Drain
// advances it, so a deferred task can tell whether the trail moved on.
func (s *Session) Generation(t Trail) uint64 {
	return s.gens[t]
}

// Drain deletes every tracked message of the trail and empties it.
// Deletion is best effort: failures are counted, never returned.
func (s *Session) Drain(ctx context.Context, t Trail, del Deleter) DrainResult {
	ids := s.trails[t]
	s.trails[t] = nil
	s.gens[t]++

	var res DrainResult
	for _, id := range ids {
		if del == nil {
			res.Ignored++
			continue
		}
		if err := del.Delete(ctx, s.ChatID, id); err != nil {
			res.Ignored++
			continue
		}
		res.Deleted++
	}
	return res
}

// DrainAll drains the screen, results and admin trails in that order.
func (s *Session) DrainAll(ctx context.Context, del Deleter) DrainResult {
	var res DrainResult
	for _, t := range Trails {
		res = res.Add(s.Drain(ctx, t, del))
	}
	return res
}

// Wipe clears scratch values. State, trails and the admin flag are kept.
func (s *Session) Wipe() {
	clear(s.Scratch)
}

// Put stores a scratch value.
func (s *Session) Put(key string, val any) {
	if s.Scratch == nil {
		s.Scratch = make(map[string]any)
	}
	s.Scratch[key] = val
}

// Value returns a scratch value.
func (s *Session) Value(key string) (any, bool) {
	v, ok := s.Scratch[key]
	return v, ok
}

// String returns a scratch value as string, empty when missing or of another type.
func (s *Session) String(key string) string {
	v, _ := s.Scratch[key].(string)
	return v
}

// Forget removes a scratch value.
func (s *Session) Forget(key string) {
	delete(s.Scratch, key)
}
