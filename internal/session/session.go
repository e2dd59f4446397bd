// Package session implements the token/state machine bound to one transfer
// (send or receive) and the lock-striped registries that track per-file
// progress underneath it.
package session

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/archdrop/archdrop/internal/crypto"
	"github.com/archdrop/archdrop/internal/manifest"
)

// State is the session's position in its Unclaimed -> Active -> Completed
// lifecycle. A session is never recycled: Completed is terminal.
type State int

const (
	Unclaimed State = iota
	Active
	Completed
)

func (s State) String() string {
	switch s {
	case Unclaimed:
		return "unclaimed"
	case Active:
		return "active"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Mode distinguishes a send session (serving a Manifest built from local
// files) from a receive session (accepting uploads into a destination
// directory). A Session is one or the other for its whole life.
type Mode int

const (
	ModeSend Mode = iota
	ModeReceive
)

var (
	// ErrTokenMismatch is returned when the caller's token does not match
	// the session's token.
	ErrTokenMismatch = errors.New("session: token mismatch")
	// ErrClientMismatch is returned when a second client_id attempts to
	// claim or act on a session already claimed by a different client_id.
	ErrClientMismatch = errors.New("session: client id mismatch")
	// ErrNotActive is returned when an operation requires Active state but
	// the session is Unclaimed or Completed.
	ErrNotActive = errors.New("session: not active")
	// ErrAlreadyCompleted is returned when an operation is attempted on a
	// Completed session.
	ErrAlreadyCompleted = errors.New("session: already completed")
)

// Session is held behind a pointer shared across every handler goroutine
// that serves one transfer. Its mutable fields are guarded by mu except for
// the progress counters, which are atomics so progress can be sampled
// without taking the lock.
type Session struct {
	Token string
	Mode  Mode
	Key   crypto.Key
	AEAD  *crypto.AEAD

	// Manifest is populated for ModeSend; DestDir for ModeReceive.
	Manifest manifest.Manifest
	DestDir  string

	mu       sync.RWMutex
	state    State
	clientID string

	totalChunks     atomic.Uint64
	chunksProcessed atomic.Uint64
}

// NewSend builds an Unclaimed send session serving the given manifest.
func NewSend(token string, key crypto.Key, m manifest.Manifest) (*Session, error) {
	aead, err := crypto.NewAEAD(key)
	if err != nil {
		return nil, err
	}
	s := &Session{Token: token, Mode: ModeSend, Key: key, AEAD: aead, Manifest: m}
	s.totalChunks.Store(m.TotalChunks())
	return s, nil
}

// NewReceive builds an Unclaimed receive session writing into destDir. Its
// total chunk count is unknown until the client posts its own manifest via
// SetTotalChunks.
func NewReceive(token string, key crypto.Key, destDir string) (*Session, error) {
	aead, err := crypto.NewAEAD(key)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, Mode: ModeReceive, Key: key, AEAD: aead, DestDir: destDir}, nil
}

// SetTotalChunks records the chunk count a receive client declared in its
// manifest post.
func (s *Session) SetTotalChunks(n uint64) {
	s.totalChunks.Store(n)
}

// Claim transitions Unclaimed -> Active{clientID}, or is a no-op on an
// already-Active session owned by the same clientID. It rejects a mismatched
// token, a different client_id stealing an in-flight transfer, or a
// Completed session.
func (s *Session) Claim(token, clientID string) error {
	if token != s.Token {
		return ErrTokenMismatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Unclaimed:
		s.state = Active
		s.clientID = clientID
		return nil
	case Active:
		if s.clientID != clientID {
			return ErrClientMismatch
		}
		return nil
	case Completed:
		return ErrAlreadyCompleted
	default:
		return ErrNotActive
	}
}

// IsActive reports whether token matches and the session is Active under
// clientID.
func (s *Session) IsActive(token, clientID string) bool {
	if token != s.Token {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == Active && s.clientID == clientID
}

// RequireActive is IsActive expressed as an error, for handlers that want to
// propagate a uniform failure.
func (s *Session) RequireActive(token, clientID string) error {
	if token != s.Token {
		return ErrTokenMismatch
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != Active {
		return ErrNotActive
	}
	if s.clientID != clientID {
		return ErrClientMismatch
	}
	return nil
}

// ClaimOrValidate claims an Unclaimed session or validates an already-Active
// one, matching the "first endpoint on the path claims" rule the manifest
// and first-chunk handlers rely on.
func (s *Session) ClaimOrValidate(token, clientID string) error {
	return s.Claim(token, clientID)
}

// Complete requires Active and transitions to Completed.
func (s *Session) Complete(token, clientID string) error {
	if err := s.RequireActive(token, clientID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Active {
		return ErrNotActive
	}
	s.state = Completed
	return nil
}

// IncrementChunksProcessed atomically advances the processed-chunk counter
// and returns the new total, for handlers computing progress.
func (s *Session) IncrementChunksProcessed() uint64 {
	return s.chunksProcessed.Add(1)
}

// Snapshot is a point-in-time view of progress, used by the shutdown
// coordinator and the receive handler's progress logging. The state is read
// under one brief read lock and the counters atomically, so the session lock
// is not held for the duration of a sample.
type Snapshot struct {
	Token           string
	Mode            Mode
	State           State
	ChunksProcessed uint64
	TotalChunks     uint64
}

// Snapshot returns the session's current progress and state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	state := s.state
	s.mu.RUnlock()
	return Snapshot{
		Token:           s.Token,
		Mode:            s.Mode,
		State:           state,
		ChunksProcessed: s.chunksProcessed.Load(),
		TotalChunks:     s.totalChunks.Load(),
	}
}

// ProgressPercent returns chunks processed over total chunks, 100 once
// Completed, 0 if total is unknown.
func (s *Session) ProgressPercent() float64 {
	snap := s.Snapshot()
	if snap.State == Completed {
		return 100
	}
	if snap.TotalChunks == 0 {
		return 0
	}
	return float64(snap.ChunksProcessed) / float64(snap.TotalChunks) * 100
}
