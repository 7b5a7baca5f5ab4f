package uistate

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/google/uuid"
)

const clientIDKey = "touchpad:client_id"

// Store loads and saves State values. It never returns errors to callers:
// corrupt data reads as defaults and failed writes are logged.
type Store struct {
	backend Backend
	logger  *log.Logger
}

// NewStore creates a store over backend
func NewStore(backend Backend, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{backend: backend, logger: logger}
}

// Load returns the state saved under key, or Default
func (s *Store) Load(key string) State {
	data, ok, err := s.backend.Get(key)
	if err != nil {
		s.logger.Printf("UI State: read %s: %v", key, err)
		return Default()
	}
	if !ok {
		return Default()
	}
	return decode(data)
}

// Save persists state under key
func (s *Store) Save(key string, state State) {
	data, err := json.Marshal(state.Normalize())
	if err != nil {
		s.logger.Printf("UI State: encode: %v", err)
		return
	}
	if err := s.backend.Put(key, data); err != nil {
		s.logger.Printf("UI State: save %s: %v", key, err)
	}
}

// ClientID returns the identity of this client installation, creating and
// persisting a new one on first use
func (s *Store) ClientID() string {
	if data, ok, err := s.backend.Get(clientIDKey); err == nil && ok {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id
		}
	}
	id := uuid.NewString()
	if err := s.backend.Put(clientIDKey, []byte(id)); err != nil {
		s.logger.Printf("UI State: save client id: %v", err)
	}
	return id
}
