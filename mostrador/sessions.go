package main

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pomodoroso/pizzanova/carrito"
)

// Session owns one visitor's cart and delivery address. Nothing here
// survives a restart; the remote backend is the only durable store.
type Session struct {
	Cart     *carrito.Cart
	Delivery *carrito.DeliveryAddress

	mu         sync.Mutex
	cartOpened bool
	lastSeen   time.Time
}

// ConsumeCartOpened reports whether AddItem fired since the last read. The
// UI uses it to pop the cart drawer open exactly once.
func (s *Session) ConsumeCartOpened() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	opened := s.cartOpened
	s.cartOpened = false
	return opened
}

func (s *Session) markOpened() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cartOpened = true
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

func (s *Session) expired(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen) > ttl
}

// SessionStore keeps live sessions keyed by cookie id.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

// Get returns an existing live session and refreshes its deadline.
func (st *SessionStore) Get(id string) (*Session, bool) {
	now := time.Now()
	st.mu.Lock()
	sess, ok := st.sessions[id]
	st.mu.Unlock()
	if !ok || sess.expired(now, st.ttl) {
		return nil, false
	}
	sess.touch(now)
	return sess, true
}

// Create makes a fresh session and returns its id.
func (st *SessionStore) Create() (string, *Session) {
	sess := &Session{
		Delivery: carrito.NewDeliveryAddress(),
		lastSeen: time.Now(),
	}
	sess.Cart = carrito.NewCart(sess.markOpened)

	id := uuid.NewString()
	st.mu.Lock()
	st.sessions[id] = sess
	st.mu.Unlock()
	return id, sess
}

// Sweep drops expired sessions until the context is done.
func (st *SessionStore) Sweep(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			st.mu.Lock()
			for id, sess := range st.sessions {
				if sess.expired(now, st.ttl) {
					delete(st.sessions, id)
				}
			}
			st.mu.Unlock()
		}
	}
}
