// internal/domain/session/manager.go
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/checkout"
)

// CheckoutFactory builds a checkout orchestrator bound to a cart
type CheckoutFactory func(store *cart.Store) *checkout.Orchestrator

// Session holds one shopper's cart and their current checkout
type Session struct {
	ID        string
	Cart      *cart.Store
	CreatedAt time.Time

	mu          sync.Mutex
	checkout    *checkout.Orchestrator
	newCheckout CheckoutFactory
	lastSeen    time.Time
}

// Checkout returns the current checkout, creating one if needed
func (s *Session) Checkout() *checkout.Orchestrator {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.checkout == nil {
		s.checkout = s.newCheckout(s.Cart)
	}
	return s.checkout
}

// BeginCheckout returns the checkout to submit through. A checkout that
// already placed its order is replaced by a fresh one, unless that order
// is a card order still waiting for payment: it stays until it is paid.
func (s *Session) BeginCheckout() *checkout.Orchestrator {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.checkout == nil {
		s.checkout = s.newCheckout(s.Cart)
		return s.checkout
	}
	if s.checkout.State() == checkout.StateSucceeded && !s.checkout.AwaitingPayment() {
		s.checkout = s.newCheckout(s.Cart)
	}
	return s.checkout
}

// Submitting reports whether an order is being placed for this session
func (s *Session) Submitting() bool {
	return s.busy()
}

// LastSeen returns when the session was last used
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) busy() bool {
	s.mu.Lock()
	co := s.checkout
	s.mu.Unlock()
	return co != nil && co.State() == checkout.StateSubmitting
}

// Manager owns the live sessions and expires idle ones
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	factory  CheckoutFactory
	logger   *logrus.Logger
	now      func() time.Time

	stopSweep chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewManager creates a session manager. Sessions idle for longer than ttl
// are removed by Sweep.
func NewManager(ttl time.Duration, factory CheckoutFactory, logger *logrus.Logger) *Manager {
	return &Manager{
		sessions:  make(map[string]*Session),
		ttl:       ttl,
		factory:   factory,
		logger:    logger,
		now:       time.Now,
		stopSweep: make(chan struct{}),
	}
}

// Get returns a live session and marks it as used
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}

	now := m.now()
	if m.expired(s, now) && !s.busy() {
		return nil, false
	}
	s.touch(now)
	return s, true
}

// GetOrCreate returns the session for id, or a new session with a fresh
// id when id is empty, unknown or expired. The flag reports creation.
func (m *Manager) GetOrCreate(id string) (*Session, bool) {
	if id != "" {
		if s, ok := m.Get(id); ok {
			return s, false
		}
	}

	now := m.now()
	s := &Session{
		ID:          uuid.NewString(),
		Cart:        cart.NewStore(),
		CreatedAt:   now,
		newCheckout: m.factory,
		lastSeen:    now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	return s, true
}

// Len returns the number of tracked sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes idle sessions and returns how many were removed.
// Sessions with a submission in flight are kept until it finishes.
func (m *Manager) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if m.expired(s, now) && !s.busy() {
			delete(m.sessions, id)
			removed++
		}
	}

	if removed > 0 {
		m.logger.WithFields(logrus.Fields{
			"removed": removed,
			"live":    len(m.sessions),
		}).Debug("expired idle sessions")
	}
	return removed
}

// StartSweeper runs Sweep every interval until Stop is called
func (m *Manager) StartSweeper(interval time.Duration) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.Sweep()
			case <-m.stopSweep:
				return
			}
		}
	}()
}

// Stop halts the sweeper and waits for it to exit
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopSweep) })
	m.wg.Wait()
}

func (m *Manager) expired(s *Session, now time.Time) bool {
	return m.ttl > 0 && now.Sub(s.LastSeen()) > m.ttl
}
