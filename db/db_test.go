package db

import (
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestConversationRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if err := s.AppendTurn("conv-1", "user", "revenue by country"); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}
	if err := s.AppendTurn("conv-1", "assistant", "Here's revenue by client_country."); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}

	turns, err := s.GetConversation("conv-1")
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
	if turns[0].Role != "user" || turns[1].Role != "assistant" {
		t.Errorf("roles = %s, %s", turns[0].Role, turns[1].Role)
	}
	if turns[0].Timestamp == "" {
		t.Error("timestamp not set")
	}
}

func TestConversationsAreIsolated(t *testing.T) {
	s := newTestStore(t)

	if err := s.AppendTurn("conv-a", "user", "hello"); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}

	turns, err := s.GetConversation("conv-b")
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("unknown conversation has %d turns, want 0", len(turns))
	}
}

func TestDeleteConversation(t *testing.T) {
	s := newTestStore(t)

	if err := s.AppendTurn("conv-1", "user", "hello"); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}
	if err := s.DeleteConversation("conv-1"); err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}
	turns, err := s.GetConversation("conv-1")
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("deleted conversation still has %d turns", len(turns))
	}
}
