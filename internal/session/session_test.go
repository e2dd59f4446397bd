package session

import (
	"testing"

	"github.com/archdrop/archdrop/internal/crypto"
	"github.com/archdrop/archdrop/internal/manifest"
)

func newSendSession(t *testing.T) *Session {
	t.Helper()
	key, err := crypto.NewKey()
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	s, err := NewSend("tok-1", key, manifest.Manifest{})
	if err != nil {
		t.Fatalf("NewSend: %v", err)
	}
	return s
}

func TestClaimFirstTimeTransitionsToActive(t *testing.T) {
	s := newSendSession(t)
	if err := s.Claim("tok-1", "client-a"); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !s.IsActive("tok-1", "client-a") {
		t.Fatalf("expected active after claim")
	}
}

func TestClaimIsIdempotentForSameClient(t *testing.T) {
	s := newSendSession(t)
	if err := s.Claim("tok-1", "client-a"); err != nil {
		t.Fatalf("first Claim: %v", err)
	}
	if err := s.Claim("tok-1", "client-a"); err != nil {
		t.Fatalf("second Claim (idempotent) should not error: %v", err)
	}
}

func TestClaimRejectsDifferentClient(t *testing.T) {
	s := newSendSession(t)
	if err := s.Claim("tok-1", "client-a"); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := s.Claim("tok-1", "client-b"); err != ErrClientMismatch {
		t.Fatalf("Claim by second client = %v, want ErrClientMismatch", err)
	}
}

func TestClaimRejectsWrongToken(t *testing.T) {
	s := newSendSession(t)
	if err := s.Claim("wrong-token", "client-a"); err != ErrTokenMismatch {
		t.Fatalf("Claim with wrong token = %v, want ErrTokenMismatch", err)
	}
}

func TestCompleteRequiresActive(t *testing.T) {
	s := newSendSession(t)
	if err := s.Complete("tok-1", "client-a"); err != ErrNotActive {
		t.Fatalf("Complete before claim = %v, want ErrNotActive", err)
	}
	if err := s.Claim("tok-1", "client-a"); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := s.Complete("tok-1", "client-a"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if s.IsActive("tok-1", "client-a") {
		t.Fatalf("expected not active after complete")
	}
}

func TestClaimRejectedOnceCompleted(t *testing.T) {
	s := newSendSession(t)
	if err := s.Claim("tok-1", "client-a"); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := s.Complete("tok-1", "client-a"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if err := s.Claim("tok-1", "client-a"); err != ErrAlreadyCompleted {
		t.Fatalf("Claim after complete = %v, want ErrAlreadyCompleted", err)
	}
}

func TestProgressPercentTracksChunks(t *testing.T) {
	s := newSendSession(t)
	s.SetTotalChunks(4)
	if got := s.ProgressPercent(); got != 0 {
		t.Fatalf("ProgressPercent before any chunk = %v, want 0", got)
	}
	s.IncrementChunksProcessed()
	s.IncrementChunksProcessed()
	if got, want := s.ProgressPercent(), 50.0; got != want {
		t.Fatalf("ProgressPercent = %v, want %v", got, want)
	}
	_ = s.Claim("tok-1", "client-a")
	_ = s.Complete("tok-1", "client-a")
	if got := s.ProgressPercent(); got != 100 {
		t.Fatalf("ProgressPercent after complete = %v, want 100", got)
	}
}
