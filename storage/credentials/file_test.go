package credstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-dashboard/core/session"
	"github.com/trezcool/masomo-dashboard/core/user"
)

var teacher = user.Identity{
	ID:        "9f1c",
	FirstName: "Tom",
	LastName:  "Teacher",
	Email:     "teacher@school.com",
	Role:      user.RoleTeacher,
	School:    "s1",
	IsActive:  true,
}

func newFileStore(t *testing.T) *FileStore {
	return NewFileStore(filepath.Join(t.TempDir(), "masomo", "credentials.json"), 7*24*time.Hour)
}

func TestFileStore_roundTrip(t *testing.T) {
	fs := newFileStore(t)

	_, ok := fs.Load()
	assert.False(t, ok, "no file, no session")

	require.NoError(t, fs.Save("t1", teacher))
	creds, ok := fs.Load()
	require.True(t, ok)
	assert.Equal(t, "t1", creds.Token)
	require.NotNil(t, creds.Identity)
	assert.Equal(t, teacher, *creds.Identity)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), creds.ExpiresAt, time.Minute)

	info, err := os.Stat(fs.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(fileMode), info.Mode().Perm())

	// the pair is replaced as a whole
	admin := teacher
	admin.ID, admin.Role = "a1", user.RoleSchoolAdmin
	require.NoError(t, fs.Save("t2", admin))
	creds, ok = fs.Load()
	require.True(t, ok)
	assert.Equal(t, "t2", creds.Token)
	assert.Equal(t, admin, *creds.Identity)

	require.NoError(t, fs.Clear())
	_, ok = fs.Load()
	assert.False(t, ok)
	require.NoError(t, fs.Clear(), "clearing twice is fine")

	entries, err := os.ReadDir(filepath.Dir(fs.Path()))
	require.NoError(t, err)
	assert.Empty(t, entries, "no temp files left behind")
}

func TestFileStore_expiry(t *testing.T) {
	fs := newFileStore(t)
	require.NoError(t, fs.Save("t1", teacher))

	fs.nowFunc = func() time.Time { return time.Now().Add(7*24*time.Hour + time.Second) }
	_, ok := fs.Load()
	assert.False(t, ok)

	_, err := os.Stat(fs.Path())
	assert.True(t, os.IsNotExist(err), "expired credentials are removed")
}

func TestFileStore_corruption(t *testing.T) {
	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)

	tests := []struct {
		name      string
		content   string
		wantOK    bool
		wantToken string
		wantID    bool
	}{
		{name: "garbage", content: "{not json"},
		{name: "empty object", content: "{}"},
		{name: "no token", content: `{"token":{"value":"","expires_at":"` + future + `"},"user":{"id":"1","role":"teacher"}}`},
		{name: "corrupt identity", content: `{"token":{"value":"t1","expires_at":"` + future + `"},"user":"lol"}`, wantOK: true, wantToken: "t1"},
		{name: "identity without role", content: `{"token":{"value":"t1","expires_at":"` + future + `"},"user":{"id":"1"}}`, wantOK: true, wantToken: "t1"},
		{name: "unknown role", content: `{"token":{"value":"t1","expires_at":"` + future + `"},"user":{"id":"1","role":"janitor"}}`, wantOK: true, wantToken: "t1"},
		{name: "no identity", content: `{"token":{"value":"t1","expires_at":"` + future + `"}}`, wantOK: true, wantToken: "t1"},
		{name: "valid", content: `{"token":{"value":"t1","expires_at":"` + future + `"},"user":{"id":"1","role":"teacher"}}`, wantOK: true, wantToken: "t1", wantID: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFileStore(t)
			require.NoError(t, os.MkdirAll(filepath.Dir(fs.Path()), 0o700))
			require.NoError(t, os.WriteFile(fs.Path(), []byte(tt.content), 0o600))

			var creds session.Credentials
			var ok bool
			assert.NotPanics(t, func() { creds, ok = fs.Load() })
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantToken, creds.Token)
			assert.Equal(t, tt.wantID, creds.Identity != nil)
		})
	}
}

func TestMemoryStore(t *testing.T) {
	ms := NewMemoryStore(time.Hour)

	_, ok := ms.Load()
	assert.False(t, ok)

	require.NoError(t, ms.Save("t1", teacher))
	creds, ok := ms.Load()
	require.True(t, ok)
	assert.Equal(t, "t1", creds.Token)
	creds.Identity.Role = user.RolePlatformAdmin

	creds, _ = ms.Load()
	assert.Equal(t, user.RoleTeacher, creds.Identity.Role, "callers get a copy")

	ms.nowFunc = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, ok = ms.Load()
	assert.False(t, ok)

	ms.nowFunc = time.Now
	require.NoError(t, ms.Save("t1", teacher))
	require.NoError(t, ms.Clear())
	_, ok = ms.Load()
	assert.False(t, ok)
}
