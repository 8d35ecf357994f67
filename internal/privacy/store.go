package privacy

import (
	"log"
	"sort"
	"sync"
)

// SecureStore is an in-memory key → ciphertext map. Values go through
// the codec on the way in and out; plaintext is never held between
// calls. Contents are process-lifetime only.
type SecureStore struct {
	codec *Codec

	mu      sync.RWMutex
	entries map[string]string
}

// NewSecureStore wraps a codec with an empty store.
func NewSecureStore(codec *Codec) *SecureStore {
	return &SecureStore{
		codec:   codec,
		entries: make(map[string]string),
	}
}

// Store encrypts and saves a value. Returns false if encryption fails;
// a broken encoding is never written.
func (s *SecureStore) Store(key string, value interface{}) bool {
	ciphertext, err := s.codec.Encrypt(value)
	if err != nil {
		log.Printf("SecureStore: error storing %q: %v", key, err)
		return false
	}

	s.mu.Lock()
	s.entries[key] = ciphertext
	s.mu.Unlock()
	return true
}

// Retrieve decrypts a stored value. The second return is false both
// when the key is absent and when decryption fails; callers needing to
// distinguish can check ListKeys. Failures are logged for diagnostics.
func (s *SecureStore) Retrieve(key string, asStructured bool) (interface{}, bool) {
	s.mu.RLock()
	ciphertext, exists := s.entries[key]
	s.mu.RUnlock()
	if !exists {
		return nil, false
	}

	value, err := s.codec.Decrypt(ciphertext, asStructured)
	if err != nil {
		log.Printf("SecureStore: error retrieving %q: %v", key, err)
		return nil, false
	}
	return value, true
}

// RetrieveInto decrypts a stored structured value into dst.
func (s *SecureStore) RetrieveInto(key string, dst interface{}) bool {
	s.mu.RLock()
	ciphertext, exists := s.entries[key]
	s.mu.RUnlock()
	if !exists {
		return false
	}
	if err := s.codec.DecryptInto(ciphertext, dst); err != nil {
		log.Printf("SecureStore: error retrieving %q: %v", key, err)
		return false
	}
	return true
}

// Ciphertext returns the stored ciphertext without decrypting.
func (s *SecureStore) Ciphertext(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ciphertext, exists := s.entries[key]
	return ciphertext, exists
}

// Delete removes an entry. Returns false if the key was absent.
func (s *SecureStore) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[key]; !exists {
		return false
	}
	delete(s.entries, key)
	return true
}

// ListKeys returns all keys in lexicographic order. Keys follow the
// <kind>_<timestamp> convention, so this is also timestamp order per
// kind.
func (s *SecureStore) ListKeys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// Len returns the number of stored entries.
func (s *SecureStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear removes all entries.
func (s *SecureStore) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]string)
	s.mu.Unlock()
}
