package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"todo-backend/pkg/schema"
)

// ErrNoSession is returned by RefreshAccessToken when there is no refresh
// token to present.
var ErrNoSession = errors.New("client: no session")

// State is what a Session holds and what its cache persists.
type State struct {
	AccessToken  string       `json:"accessToken,omitempty"`
	RefreshToken string       `json:"refreshToken,omitempty"`
	User         *schema.User `json:"user,omitempty"`
}

func (s State) IsZero() bool {
	return s.AccessToken == "" && s.RefreshToken == "" && s.User == nil
}

// RefreshFunc exchanges a refresh token for a new session.
type RefreshFunc func(ctx context.Context, refreshToken string) (*schema.AuthResponse, error)

// refreshCall is the in-flight refresh every concurrent caller waits on.
type refreshCall struct {
	done  chan struct{}
	token string
	err   error
}

// Session holds the caller's tokens and user. It is safe for concurrent use.
// At most one refresh runs at a time; callers arriving while one is running
// share its result.
type Session struct {
	refresh RefreshFunc
	cache   Cache
	log     *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	state   State
	gen     uint64 // bumped by Login and Logout
	pending *refreshCall

	persistMu sync.Mutex

	notifyMu  sync.Mutex
	listeners []func(State)
}

type SessionOption func(*Session)

// WithSessionCache persists every state change to c.
func WithSessionCache(c Cache) SessionOption {
	return func(s *Session) { s.cache = c }
}

func WithSessionLogger(l *zap.Logger) SessionOption {
	return func(s *Session) { s.log = l }
}

// WithSessionRefreshTimeout bounds a single refresh round trip.
func WithSessionRefreshTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.timeout = d }
}

func NewSession(refresh RefreshFunc, opts ...SessionOption) *Session {
	s := &Session{refresh: refresh, log: zap.NewNop(), timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() State {
	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AccessToken
}

func (s *Session) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.RefreshToken
}

func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AccessToken != "" && s.state.User != nil
}

// OnChange registers fn to receive every new state. The returned func removes it.
func (s *Session) OnChange(fn func(State)) (remove func()) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.listeners = append(s.listeners, fn)
	idx := len(s.listeners) - 1
	return func() {
		s.notifyMu.Lock()
		defer s.notifyMu.Unlock()
		if idx < len(s.listeners) {
			s.listeners[idx] = nil
		}
	}
}

// Login replaces the session with resp. Memory is updated before persistence.
func (s *Session) Login(resp schema.AuthResponse) {
	user := resp.User
	s.mu.Lock()
	s.gen++
	s.state = State{AccessToken: resp.Token, RefreshToken: resp.RefreshToken, User: &user}
	s.mu.Unlock()
	s.changed()
}

// Logout forgets the session locally.
func (s *Session) Logout() {
	s.mu.Lock()
	s.gen++
	s.state = State{}
	s.mu.Unlock()
	s.changed()
}

// Restore loads a previously persisted session from the cache.
func (s *Session) Restore(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	st, err := s.cache.Load(ctx)
	if errors.Is(err, ErrCacheMiss) {
		return nil
	}
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.gen++
	s.state = st
	snap := s.snapshotLocked()
	s.mu.Unlock()
	if !snap.IsZero() {
		s.notify(snap)
	}
	return nil
}

// RefreshAccessToken obtains a new access token. If a refresh is already
// running the caller waits for that one instead of starting another. Any
// failure clears the whole session. ctx only bounds the caller's wait; the
// shared round trip runs under its own timeout.
func (s *Session) RefreshAccessToken(ctx context.Context) (string, error) {
	return s.refreshUnless(ctx, "")
}

// refreshUnless refreshes only if the held access token is still rejected,
// that is empty or equal to rejected. A token that already changed since the
// caller sent its request is returned as is.
func (s *Session) refreshUnless(ctx context.Context, rejected string) (string, error) {
	s.mu.Lock()
	if call := s.pending; call != nil {
		s.mu.Unlock()
		return wait(ctx, call)
	}
	if tok := s.state.AccessToken; rejected != "" && tok != "" && tok != rejected {
		s.mu.Unlock()
		return tok, nil
	}

	raw := s.state.RefreshToken
	if raw == "" {
		wasSet := !s.state.IsZero()
		s.state = State{}
		s.mu.Unlock()
		if wasSet {
			s.changed()
		}
		return "", ErrNoSession
	}

	call := &refreshCall{done: make(chan struct{})}
	s.pending = call
	gen := s.gen
	s.mu.Unlock()

	go s.runRefresh(call, raw, gen)
	return wait(ctx, call)
}

func (s *Session) runRefresh(call *refreshCall, raw string, gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	resp, err := s.refresh(ctx, raw)
	if err == nil && (resp == nil || resp.Token == "") {
		err = errors.New("client: empty refresh response")
	}

	s.mu.Lock()
	current := s.gen == gen
	switch {
	case err != nil:
		call.err = err
		if current {
			s.state = State{}
		}
	case current:
		user := resp.User
		s.state.AccessToken = resp.Token
		s.state.User = &user
		if resp.RefreshToken != "" {
			s.state.RefreshToken = resp.RefreshToken
		}
		call.token = resp.Token
	default:
		// Login or Logout happened meanwhile; their state wins.
		call.err = ErrNoSession
	}
	s.pending = nil
	s.mu.Unlock()
	close(call.done)

	if err != nil {
		s.log.Warn("session refresh failed, session cleared", zap.Error(err))
	}
	if current {
		s.changed()
	}
}

func wait(ctx context.Context, call *refreshCall) (string, error) {
	select {
	case <-call.done:
		return call.token, call.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// changed persists and fans out the current state. Snapshot and write share
// persistMu so the last persisted state is the latest one. Listeners run
// with no lock held and may call back into the session.
func (s *Session) changed() {
	s.persistMu.Lock()
	st := s.Snapshot()
	if s.cache != nil {
		if err := s.persist(st); err != nil {
			s.log.Warn("session cache write failed", zap.Error(err))
		}
	}
	s.persistMu.Unlock()

	s.notify(st)
}

func (s *Session) notify(st State) {
	s.notifyMu.Lock()
	fns := make([]func(State), len(s.listeners))
	copy(fns, s.listeners)
	s.notifyMu.Unlock()

	for _, fn := range fns {
		if fn != nil {
			fn(st)
		}
	}
}

func (s *Session) persist(st State) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if st.IsZero() {
		return s.cache.Clear(ctx)
	}
	return s.cache.Save(ctx, st)
}
