package credstore

import (
	"sync"
	"time"

	"github.com/trezcool/masomo-dashboard/core/session"
	"github.com/trezcool/masomo-dashboard/core/user"
)

// MemoryStore keeps the credentials for the lifetime of the process.
type MemoryStore struct {
	mu      sync.Mutex
	creds   *session.Credentials
	ttl     time.Duration
	nowFunc func() time.Time // mockable
}

var _ session.CredentialStore = (*MemoryStore)(nil)

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, nowFunc: time.Now}
}

func (ms *MemoryStore) Save(token string, identity user.Identity) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.creds = &session.Credentials{Token: token, Identity: &identity, ExpiresAt: ms.nowFunc().Add(ms.ttl)}
	return nil
}

func (ms *MemoryStore) Load() (session.Credentials, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.creds == nil {
		return session.Credentials{}, false
	}
	if !ms.nowFunc().Before(ms.creds.ExpiresAt) {
		ms.creds = nil
		return session.Credentials{}, false
	}
	creds := *ms.creds
	id := *creds.Identity
	creds.Identity = &id
	return creds, true
}

func (ms *MemoryStore) Clear() error {
	ms.mu.Lock()
	ms.creds = nil
	ms.mu.Unlock()
	return nil
}
