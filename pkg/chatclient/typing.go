package chatclient

import (
	"sort"
	"sync"
	"time"

	"apartment_chat_service/internal/chat/domain"
)

const (
	// DefaultTypingDebounce keystrokes inside this window collapse into one typing(true)
	DefaultTypingDebounce = 300 * time.Millisecond
	// DefaultTypingTimeout an indicator with no refresh is cleared after this long
	DefaultTypingTimeout = 3 * time.Second
)

// TypingEmitter sender side. At most one typing(true) per window while the user types;
// Stop sends typing(false) if a start was sent.
type TypingEmitter struct {
	mu sync.Mutex
	// emitMu is taken before mu is released, so emits go out in the order
	// their state changes were made
	emitMu  sync.Mutex
	window  time.Duration
	emit    func(isTyping bool)
	pending *time.Timer
	started bool
}

// NewTypingEmitter emit is called from a timer goroutine and must not call back into the emitter
func NewTypingEmitter(window time.Duration, emit func(isTyping bool)) *TypingEmitter {
	if window <= 0 {
		window = DefaultTypingDebounce
	}
	return &TypingEmitter{window: window, emit: emit}
}

// Input call on every keystroke
func (e *TypingEmitter) Input() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending != nil {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(e.window, func() {
		e.mu.Lock()
		if e.pending != t {
			e.mu.Unlock()
			return
		}
		e.pending = nil
		e.started = true
		e.emitMu.Lock()
		defer e.emitMu.Unlock()
		e.mu.Unlock()
		e.emit(true)
	})
	e.pending = t
}

// Stop message sent, input cleared or the room closed
func (e *TypingEmitter) Stop() {
	e.mu.Lock()
	if e.pending != nil {
		e.pending.Stop()
		e.pending = nil
	}
	if !e.started {
		e.mu.Unlock()
		return
	}
	e.started = false
	e.emitMu.Lock()
	defer e.emitMu.Unlock()
	e.mu.Unlock()
	e.emit(false)
}

type typingKey struct {
	roomID string
	userID string
}

type typingEntry struct {
	payload domain.UserTypingPayload
	timer   *time.Timer
}

// TypingIndicator receiver side: who is typing per room. Every typing(true) refreshes
// a timeout; typing(false) or the timeout clears the entry.
type TypingIndicator struct {
	mu       sync.Mutex
	timeout  time.Duration
	active   map[typingKey]*typingEntry
	onChange func(roomID string)
}

// NewTypingIndicator onChange may be nil; it runs without the lock held
func NewTypingIndicator(timeout time.Duration, onChange func(roomID string)) *TypingIndicator {
	if timeout <= 0 {
		timeout = DefaultTypingTimeout
	}
	return &TypingIndicator{
		timeout:  timeout,
		active:   map[typingKey]*typingEntry{},
		onChange: onChange,
	}
}

// Apply a user_typing event
func (t *TypingIndicator) Apply(p domain.UserTypingPayload) {
	k := typingKey{roomID: p.RoomID, userID: p.UserID}

	t.mu.Lock()
	if old := t.active[k]; old != nil {
		old.timer.Stop()
		delete(t.active, k)
	}
	if p.IsTyping {
		entry := &typingEntry{payload: p}
		entry.timer = time.AfterFunc(t.timeout, func() { t.expire(k, entry) })
		t.active[k] = entry
	}
	t.mu.Unlock()

	t.changed(p.RoomID)
}

func (t *TypingIndicator) expire(k typingKey, entry *typingEntry) {
	t.mu.Lock()
	if t.active[k] != entry {
		// refreshed or cleared meanwhile
		t.mu.Unlock()
		return
	}
	delete(t.active, k)
	t.mu.Unlock()

	t.changed(k.roomID)
}

func (t *TypingIndicator) changed(roomID string) {
	if t.onChange != nil {
		t.onChange(roomID)
	}
}

// Typing users currently typing in the room, by name
func (t *TypingIndicator) Typing(roomID string) []domain.UserTypingPayload {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []domain.UserTypingPayload
	for k, e := range t.active {
		if k.roomID == roomID {
			out = append(out, e.payload)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserName < out[j].UserName })
	return out
}

// Close stop every pending timeout
func (t *TypingIndicator) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, e := range t.active {
		e.timer.Stop()
		delete(t.active, k)
	}
}
