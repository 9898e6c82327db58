// Package consent issues and checks single-use execution tokens for
// commands that mutate state. A token binds to a command signature, the
// first three whitespace-separated words, so the caller may adjust
// trailing arguments without re-consenting, but never the operation.
package consent

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultTTL bounds how long an issued token stays redeemable.
const DefaultTTL = 300 * time.Second

type entry struct {
	signature string
	expires   time.Time
}

// Manager tracks outstanding consent tokens. Safe for concurrent use.
type Manager struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	tokens map[string]entry
}

func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		ttl:    ttl,
		now:    time.Now,
		tokens: make(map[string]entry),
	}
}

// Signature reduces a command to the prefix a token binds to.
func Signature(command string) string {
	fields := strings.Fields(command)
	if len(fields) > 3 {
		fields = fields[:3]
	}
	return strings.Join(fields, " ")
}

// Generate issues a fresh token for the command. Tokens are 128-bit
// random values rendered as hex.
func (m *Manager) Generate(command string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating consent token: %w", err)
	}
	token := hex.EncodeToString(buf)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = entry{
		signature: Signature(command),
		expires:   m.now().Add(m.ttl),
	}
	return token, nil
}

// Validate redeems the token for the command. A successful validation
// consumes the token; expired tokens are evicted whether or not the
// signature matches.
func (m *Manager) Validate(token, command string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.tokens[token]
	if !ok {
		return false
	}
	if m.now().After(e.expires) {
		delete(m.tokens, token)
		return false
	}
	if e.signature != Signature(command) {
		return false
	}
	delete(m.tokens, token)
	return true
}

// HasValidTokenFor reports whether any live token is bound to the
// command's signature. Does not consume anything.
func (m *Manager) HasValidTokenFor(command string) bool {
	sig := Signature(command)
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.tokens {
		if e.signature == sig && !now.After(e.expires) {
			return true
		}
	}
	return false
}

// Invalidate drops the token if present.
func (m *Manager) Invalidate(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
}

// CleanupExpired evicts every expired token and returns how many went.
func (m *Manager) CleanupExpired() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for token, e := range m.tokens {
		if now.After(e.expires) {
			delete(m.tokens, token)
			evicted++
		}
	}
	return evicted
}
