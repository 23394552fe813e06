package db

import (
	"encoding/json"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"orderlens/models"
)

// Store keeps per-conversation chat history in an embedded badger database.
type Store struct {
	db *badger.DB
}

func New(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	b, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %s: %w", path, err)
	}
	return &Store{db: b}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func conversationKey(conversationID string) []byte {
	return []byte("conv:" + conversationID)
}

// AppendTurn loads the conversation, appends one turn and writes it back.
// Conversations are small enough that read-modify-write is fine.
func (s *Store) AppendTurn(conversationID, role, content string) error {
	turns, err := s.GetConversation(conversationID)
	if err != nil {
		return err
	}
	turns = append(turns, models.ChatTurn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	data, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation %s: %w", conversationID, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(conversationKey(conversationID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store conversation %s: %w", conversationID, err)
	}
	return nil
}

// GetConversation returns the turns for a conversation, oldest first.
// A missing conversation is not an error, it is just empty.
func (s *Store) GetConversation(conversationID string) ([]models.ChatTurn, error) {
	var turns []models.ChatTurn
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(conversationKey(conversationID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &turns)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", conversationID, err)
	}
	return turns, nil
}

// DeleteConversation removes a conversation's history.
func (s *Store) DeleteConversation(conversationID string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(conversationKey(conversationID))
	})
	if err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", conversationID, err)
	}
	return nil
}
