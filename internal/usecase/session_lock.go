package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Work names what holds a session.
type Work string

const (
	WorkChat     Work = "chat"
	WorkAnalysis Work = "analysis"
	WorkFeedback Work = "feedback"
	WorkCanvas   Work = "canvas"
	WorkDrawing  Work = "drawing"
	WorkTip      Work = "tip"
)

// SessionLocker serializes the work done on each drawing session, so a
// chat reply, a drawing and a canvas update never touch the same board at
// once. A session has a slot only while work holds it or waits for it.
type SessionLocker struct {
	mu    sync.Mutex
	slots map[string]*sessionSlot
}

type sessionSlot struct {
	token   chan struct{} // one buffered token: sending it takes the session
	waiters int           // holder included
	holder  Work
	since   time.Time
}

// NewSessionLocker creates an empty locker.
func NewSessionLocker() *SessionLocker {
	return &SessionLocker{slots: make(map[string]*sessionSlot)}
}

// Lock waits for the session and holds it for work. The returned unlock
// must be called; calling it twice is harmless.
func (sl *SessionLocker) Lock(ctx context.Context, sessionID string, work Work) (unlock func(), err error) {
	slot := sl.join(sessionID)

	select {
	case slot.token <- struct{}{}:
	case <-ctx.Done():
		sl.leave(sessionID, slot)
		return nil, fmt.Errorf("session lock (%s): %w", work, ctx.Err())
	}
	return sl.hold(sessionID, slot, work), nil
}

// TryLock takes the session only when nothing holds or waits for it.
// Tips use it so they never queue behind a reply or a drawing.
func (sl *SessionLocker) TryLock(sessionID string, work Work) (unlock func(), ok bool) {
	sl.mu.Lock()
	if _, busy := sl.slots[sessionID]; busy {
		sl.mu.Unlock()
		return nil, false
	}
	slot := &sessionSlot{token: make(chan struct{}, 1), waiters: 1}
	sl.slots[sessionID] = slot
	sl.mu.Unlock()

	slot.token <- struct{}{}
	return sl.hold(sessionID, slot, work), true
}

// Holder reports the work holding the session and for how long.
func (sl *SessionLocker) Holder(sessionID string) (Work, time.Duration, bool) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	slot, ok := sl.slots[sessionID]
	if !ok || slot.holder == "" {
		return "", 0, false
	}
	return slot.holder, time.Since(slot.since), true
}

func (sl *SessionLocker) join(sessionID string) *sessionSlot {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	slot, ok := sl.slots[sessionID]
	if !ok {
		slot = &sessionSlot{token: make(chan struct{}, 1)}
		sl.slots[sessionID] = slot
	}
	slot.waiters++
	return slot
}

func (sl *SessionLocker) leave(sessionID string, slot *sessionSlot) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	slot.waiters--
	if slot.waiters == 0 {
		delete(sl.slots, sessionID)
	}
}

func (sl *SessionLocker) hold(sessionID string, slot *sessionSlot, work Work) func() {
	sl.mu.Lock()
	slot.holder = work
	slot.since = time.Now()
	sl.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sl.mu.Lock()
			slot.holder = ""
			sl.mu.Unlock()
			sl.leave(sessionID, slot)
			<-slot.token
		})
	}
}
