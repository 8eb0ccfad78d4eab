// Package credstore persists the session token and identity between dashboard runs.
package credstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-dashboard/core/session"
	"github.com/trezcool/masomo-dashboard/core/user"
)

const fileMode = 0o600

type (
	fileToken struct {
		Value     string    `json:"value"`
		ExpiresAt time.Time `json:"expires_at"`
	}

	fileData struct {
		Token fileToken       `json:"token"`
		User  json.RawMessage `json:"user,omitempty"`
	}
)

// FileStore keeps the credentials in a JSON file readable by its owner only.
// The token and identity are written together in one atomic rename.
type FileStore struct {
	mu      sync.Mutex
	path    string
	ttl     time.Duration
	nowFunc func() time.Time // mockable
}

var _ session.CredentialStore = (*FileStore)(nil)

// NewFileStore stores credentials at path. Saved tokens expire after ttl.
func NewFileStore(path string, ttl time.Duration) *FileStore {
	return &FileStore{
		path:    filepath.Clean(path),
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

func (fs *FileStore) Path() string { return fs.path }

func (fs *FileStore) Save(token string, identity user.Identity) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	usr, err := json.Marshal(identity)
	if err != nil {
		return errors.Wrap(err, "encoding identity")
	}
	data, err := json.MarshalIndent(fileData{
		Token: fileToken{Value: token, ExpiresAt: fs.nowFunc().Add(fs.ttl).UTC()},
		User:  usr,
	}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding credentials")
	}
	return errors.Wrap(writeFileAtomic(fs.path, data), "writing credentials")
}

// Load returns the stored credentials. Unreadable files and expired tokens mean no session; an
// unreadable identity is returned as nil with its token.
func (fs *FileStore) Load() (session.Credentials, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	raw, err := os.ReadFile(fs.path)
	if err != nil {
		return session.Credentials{}, false
	}
	var data fileData
	if err = json.Unmarshal(raw, &data); err != nil || data.Token.Value == "" {
		return session.Credentials{}, false
	}
	if !data.Token.ExpiresAt.IsZero() && !fs.nowFunc().Before(data.Token.ExpiresAt) {
		_ = os.Remove(fs.path)
		return session.Credentials{}, false
	}

	creds := session.Credentials{Token: data.Token.Value, ExpiresAt: data.Token.ExpiresAt}
	if len(data.User) > 0 {
		var id user.Identity
		if json.Unmarshal(data.User, &id) == nil && id.Valid() {
			creds.Identity = &id
		}
	}
	return creds, true
}

func (fs *FileStore) Clear() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing credentials")
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() // no-op once renamed

	if err = tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
