package telegram

import (
	"sync"

	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/m3rciful/schoolbot/core/telegram/helpers"
)

const defaultLaneSize = 32

// Lanes runs the handler chain of each chat on its own goroutine, one update
// at a time, in the order the updates were enqueued. Different chats run in
// parallel. Enqueueing must happen from a single goroutine, which is what a
// synchronous bot does.
type Lanes struct {
	size    int
	onError func(error, tele.Context)

	mu     sync.Mutex
	lanes  map[int64]*lane
	closed bool
	wg     sync.WaitGroup
}

// NewLanes returns lanes buffering size updates per chat. onError receives
// the errors of handlers run on a lane.
func NewLanes(size int, onError func(error, tele.Context)) *Lanes {
	if size <= 0 {
		size = defaultLaneSize
	}
	return &Lanes{size: size, onError: onError, lanes: make(map[int64]*lane)}
}

// Middleware moves next onto the lane of the update's chat. Updates without
// a chat, and updates arriving after Close, run inline.
func (l *Lanes) Middleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		_, chatID := tghelpers.Participants(c)
		if chatID == 0 {
			return next(c)
		}
		job := func() {
			if err := next(c); err != nil && l.onError != nil {
				l.onError(err, c)
			}
		}
		if !l.enqueue(chatID, job) {
			return next(c)
		}
		return nil
	}
}

// pending counts jobs handed to a lane and not yet run; the lane retires
// when it drops to zero, so a sender never targets a retired lane.
type lane struct {
	jobs    chan func()
	pending int
}

func (l *Lanes) enqueue(chatID int64, job func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	ln, ok := l.lanes[chatID]
	if !ok {
		ln = &lane{jobs: make(chan func(), l.size)}
		l.lanes[chatID] = ln
		l.wg.Add(1)
		go l.run(chatID, ln)
	}
	ln.pending++
	l.mu.Unlock()

	// A full lane blocks the caller.
	ln.jobs <- job
	return true
}

func (l *Lanes) run(chatID int64, ln *lane) {
	defer l.wg.Done()
	for job := range ln.jobs {
		job()
		l.mu.Lock()
		ln.pending--
		if ln.pending == 0 {
			delete(l.lanes, chatID)
			l.mu.Unlock()
			return
		}
		l.mu.Unlock()
	}
}

// Len reports the number of chats with queued or running updates.
func (l *Lanes) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lanes)
}

// Close stops accepting updates and waits for every lane to drain.
func (l *Lanes) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.wg.Wait()
}
