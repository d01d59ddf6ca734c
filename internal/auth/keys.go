// Package auth authenticates API callers and carries their subscription
// tier through the request context. Keys are presented as
// "Bearer <user>.<secret>" and checked against bcrypt hashes.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/formationhub/contentd/internal/config"
	cerrors "github.com/formationhub/contentd/internal/errors"
)

// SecretBytes is the number of random bytes in a generated secret.
const SecretBytes = 24

// Identity is an authenticated caller.
type Identity struct {
	UserID string
	Tier   string
}

// Store validates API keys. It is safe for concurrent use.
type Store struct {
	hashes map[string]config.APIKeyEntry // user -> entry

	mu       sync.RWMutex
	verified map[string]Identity // sha256(token) -> identity
}

// NewStore returns a Store for the configured keys.
func NewStore(entries []config.APIKeyEntry) *Store {
	s := &Store{
		hashes:   make(map[string]config.APIKeyEntry, len(entries)),
		verified: make(map[string]Identity),
	}
	for _, e := range entries {
		s.hashes[e.UserID] = e
	}
	return s
}

// Len returns the number of configured users.
func (s *Store) Len() int {
	return len(s.hashes)
}

// Validate checks token and returns the identity it belongs to. Tokens
// that passed bcrypt once are remembered by digest so repeat requests skip
// the hash comparison.
func (s *Store) Validate(token string) (Identity, error) {
	digest := tokenDigest(token)

	s.mu.RLock()
	id, ok := s.verified[digest]
	s.mu.RUnlock()
	if ok {
		return id, nil
	}

	user, secret, found := strings.Cut(token, ".")
	if !found || user == "" || secret == "" {
		return Identity{}, cerrors.ErrInvalidAPIKey
	}

	entry, ok := s.hashes[user]
	if !ok {
		return Identity{}, cerrors.ErrInvalidAPIKey
	}

	if err := bcrypt.CompareHashAndPassword([]byte(entry.Hash), []byte(secret)); err != nil {
		return Identity{}, cerrors.ErrInvalidAPIKey
	}

	id = Identity{UserID: entry.UserID, Tier: entry.Tier}

	s.mu.Lock()
	s.verified[digest] = id
	s.mu.Unlock()

	return id, nil
}

func tokenDigest(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// GenerateSecret returns a random hex secret.
func GenerateSecret() (string, error) {
	b := make([]byte, SecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashSecret returns the bcrypt hash stored in API_KEYS for secret.
func HashSecret(secret string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", fmt.Errorf("hashing secret: %w", err)
	}
	return string(hash), nil
}
