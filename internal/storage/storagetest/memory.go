// Package storagetest provides an in-memory storage.Store for tests.
package storagetest

import (
	"context"
	"slices"
	"sync"

	"github.com/m3rciful/schoolbot/internal/storage"
)

// Memory is a mutex-guarded Store. Err, when set, fails every call.
type Memory struct {
	mu     sync.Mutex
	subs   map[int64]struct{}
	posts  []storage.Post
	nextID int64

	Err error
}

// New returns an empty store.
func New() *Memory {
	return &Memory{subs: make(map[int64]struct{})}
}

func (m *Memory) AddSubscriber(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.subs[chatID] = struct{}{}
	return nil
}

func (m *Memory) ListSubscribers(context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	ids := make([]int64, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (m *Memory) RemoveSubscriber(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	delete(m.subs, chatID)
	return nil
}

func (m *Memory) InsertPost(_ context.Context, p storage.Post) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	m.nextID++
	p.ID = m.nextID
	m.posts = append(m.posts, p)
	return p.ID, nil
}

func (m *Memory) RecentPosts(_ context.Context, limit int) ([]storage.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []storage.Post
	for i := len(m.posts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.posts[i])
	}
	return out, nil
}

func (m *Memory) GetPost(_ context.Context, id int64) (storage.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return storage.Post{}, m.Err
	}
	if i := m.index(id); i >= 0 {
		return m.posts[i], nil
	}
	return storage.Post{}, storage.ErrNotFound
}

func (m *Memory) UpdatePost(_ context.Context, p storage.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	i := m.index(p.ID)
	if i < 0 {
		return storage.ErrNotFound
	}
	m.posts[i].Text = p.Text
	m.posts[i].Caption = p.Caption
	return nil
}

func (m *Memory) DeletePost(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	i := m.index(id)
	if i < 0 {
		return storage.ErrNotFound
	}
	m.posts = slices.Delete(m.posts, i, i+1)
	return nil
}

func (m *Memory) index(id int64) int {
	return slices.IndexFunc(m.posts, func(p storage.Post) bool { return p.ID == id })
}
