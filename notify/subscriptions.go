package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// Subscriptions is the set of chats that receive alerts, persisted as a JSON
// array of chat ids.
type Subscriptions struct {
	path  string
	mu    sync.RWMutex
	chats map[int64]struct{}
}

// LoadSubscriptions reads path. A missing file yields an empty set.
func LoadSubscriptions(path string) (*Subscriptions, error) {
	s := &Subscriptions{path: path, chats: make(map[int64]struct{})}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("subscriptions: read %s: %w", path, err)
	}

	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("subscriptions: parse %s: %w", path, err)
	}
	for _, id := range ids {
		s.chats[id] = struct{}{}
	}
	return s, nil
}

// Add subscribes chatID and persists the set.
func (s *Subscriptions) Add(chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[chatID] = struct{}{}
	return s.saveLocked()
}

// Remove unsubscribes chatID and persists the set.
func (s *Subscriptions) Remove(chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chats, chatID)
	return s.saveLocked()
}

// List returns the subscribed chats in ascending order.
func (s *Subscriptions) List() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(s.chats))
	for id := range s.chats {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of subscribed chats.
func (s *Subscriptions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chats)
}

func (s *Subscriptions) saveLocked() error {
	ids := make([]int64, 0, len(s.chats))
	for id := range s.chats {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("subscriptions: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".subscriptions-*.json")
	if err != nil {
		return fmt.Errorf("subscriptions: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("subscriptions: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("subscriptions: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("subscriptions: rename: %w", err)
	}
	return nil
}
