package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-dashboard/core/user"
)

func TestSession_State(t *testing.T) {
	id := &user.Identity{ID: "1", Role: user.RoleParent}
	tests := []struct {
		name string
		sess Session
		want State
	}{
		{name: "empty", want: StateAnonymous},
		{name: "token only", sess: Session{Token: "t"}, want: StateAnonymous},
		{name: "identity only", sess: Session{Identity: id}, want: StateAnonymous},
		{name: "loading", sess: Session{IsLoading: true}, want: StateAuthenticating},
		{name: "token and identity", sess: Session{Token: "t", Identity: id}, want: StateAuthenticated},
		{name: "authenticated while loading", sess: Session{Token: "t", Identity: id, IsLoading: true}, want: StateAuthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sess.State(); got != tt.want {
				t.Errorf("State() = %v, want %v", got, tt.want)
			}
			if got := tt.sess.IsAuthenticated(); got != (tt.want == StateAuthenticated) {
				t.Errorf("IsAuthenticated() = %v", got)
			}
		})
	}
}

func TestStore_SessionIsACopy(t *testing.T) {
	st := NewStore()
	st.update(func(s *Session) {
		s.Token = "t"
		s.Identity = &user.Identity{ID: "1", Role: user.RoleStudent}
	})

	sess := st.Session()
	sess.Identity.Role = user.RolePlatformAdmin
	sess.Token = "forged"

	assert.Equal(t, user.RoleStudent, st.Session().Role())
	assert.Equal(t, "t", st.Token())
}

func TestStore_Subscribe(t *testing.T) {
	st := NewStore()

	var got []string
	cancel := st.Subscribe(func(s Session) { got = append(got, s.Token) })
	var other int
	st.Subscribe(func(Session) { other++ })

	st.update(func(s *Session) { s.Token = "a" })
	st.update(func(s *Session) { s.Token = "a" }) // no change, no notification
	st.update(func(s *Session) { s.Token = "b" })
	cancel()
	cancel()
	st.update(func(s *Session) { s.Token = "c" })

	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 3, other)
}
