package sender

import (
	"errors"
	"testing"
)

func TestPlayer(t *testing.T) {
	s := Player("alice")
	if s.IsInternal() {
		t.Error("Player sender should not be internal")
	}
	if !s.IsPlayer("alice") {
		t.Error("IsPlayer(alice) = false, want true")
	}
	if s.IsPlayer("bob") {
		t.Error("IsPlayer(bob) = true, want false")
	}
	id, ok := s.PlayerID()
	if !ok || id != "alice" {
		t.Errorf("PlayerID() = %q, %v, want alice, true", id, ok)
	}
}

func TestInternal(t *testing.T) {
	if !Internal.IsInternal() {
		t.Error("Internal.IsInternal() = false")
	}
	if Internal.IsPlayer("") {
		t.Error("Internal should never match a player")
	}
	if _, ok := Internal.PlayerID(); ok {
		t.Error("Internal.PlayerID() ok = true, want false")
	}
	if Internal.String() != "internal" {
		t.Errorf("String() = %q, want internal", Internal.String())
	}
}

func TestRequire(t *testing.T) {
	if err := Require(true); err != nil {
		t.Errorf("Require(true) = %v, want nil", err)
	}
	if err := Require(false); !errors.Is(err, ErrNotPermitted) {
		t.Errorf("Require(false) = %v, want ErrNotPermitted", err)
	}
}

func TestZeroSender(t *testing.T) {
	var s Sender
	if s.IsInternal() {
		t.Error("zero Sender should not be internal")
	}
	if s.IsPlayer("") {
		t.Error("zero Sender should not match the empty player")
	}
	if _, ok := s.PlayerID(); ok {
		t.Error("zero Sender PlayerID() ok = true, want false")
	}
	if s.String() != "unknown" {
		t.Errorf("String() = %q, want unknown", s.String())
	}
}
