package user_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/user"
	"github.com/trezcool/masomo-dashboard/tests"
)

var resetLinkRegex = regexp.MustCompile(`/reset-password/(\S+)`)

func TestService_Create(t *testing.T) {
	conf := testutil.NewConfig(t)
	svc, _, _ := testutil.NewUserService(t, conf)
	ctx := context.Background()

	usr, err := svc.Create(ctx, validNewUser())
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.Equal(t, "tom@school.com", usr.Email)
	assert.Equal(t, "Tom", usr.FirstName)
	assert.Equal(t, "Lycée Wima", usr.School)
	assert.True(t, usr.IsActive)
	assert.True(t, usr.LastLogin.IsZero())
	assert.NoError(t, usr.CheckPassword("Passw0rd"))

	got, err := svc.GetByEmail(ctx, " TOM@school.com")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	_, err = svc.Create(ctx, validNewUser())
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, map[string]string{"email": "a user with this email already exists"}, vErr.FieldMap())
}

func TestService_Authenticate(t *testing.T) {
	conf := testutil.NewConfig(t)
	svc, repo, _ := testutil.NewUserService(t, conf)
	ctx := context.Background()

	active := testutil.CreateUser(t, repo, "Ada", "Admin", "ada@school.com", "Passw0rd", user.RoleSchoolAdmin, "s1", true)
	testutil.CreateUser(t, repo, "Ivy", "Inactive", "ivy@school.com", "Passw0rd", user.RoleTeacher, "s1", false)

	tests := []struct {
		name    string
		creds   user.Credentials
		wantErr error
	}{
		{name: "success", creds: user.Credentials{Email: "ada@school.com", Password: "Passw0rd"}},
		{name: "email is case-insensitive", creds: user.Credentials{Email: "ADA@School.com ", Password: "Passw0rd"}},
		{name: "wrong password", creds: user.Credentials{Email: "ada@school.com", Password: "passw0rd"}, wantErr: user.ErrInvalidCredentials},
		{name: "unknown email", creds: user.Credentials{Email: "bob@school.com", Password: "Passw0rd"}, wantErr: user.ErrInvalidCredentials},
		{name: "deactivated", creds: user.Credentials{Email: "ivy@school.com", Password: "Passw0rd"}, wantErr: user.ErrAccountDeactivated},
		{name: "deactivated with wrong password", creds: user.Credentials{Email: "ivy@school.com", Password: "nope"}, wantErr: user.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := svc.Authenticate(ctx, tt.creds)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, active.ID, usr.ID)
			assert.False(t, usr.LastLogin.IsZero())

			stored, err := repo.GetUserByID(ctx, active.ID)
			require.NoError(t, err)
			assert.Equal(t, usr.LastLogin, stored.LastLogin)
		})
	}
}

func TestService_Query(t *testing.T) {
	conf := testutil.NewConfig(t)
	svc, repo, _ := testutil.NewUserService(t, conf)
	ctx := context.Background()

	now := time.Now()
	admin := testutil.CreateUser(t, repo, "Ada", "Admin", "ada@school.com", "", user.RoleSchoolAdmin, "s1", true, now)
	teacher := testutil.CreateUser(t, repo, "Tom", "Teacher", "tom@school.com", "", user.RoleTeacher, "s1", true, now.Add(time.Second))
	other := testutil.CreateUser(t, repo, "Otto", "Teacher", "otto@other.com", "", user.RoleTeacher, "s2", false, now.Add(2*time.Second))

	bPtr := func(b bool) *bool { return &b }
	tests := []struct {
		name   string
		filter user.QueryFilter
		want   []user.User
	}{
		{name: "all", want: []user.User{admin, teacher, other}},
		{name: "search", filter: user.QueryFilter{Search: " TEACHER "}, want: []user.User{teacher, other}},
		{name: "search email", filter: user.QueryFilter{Search: "other.com"}, want: []user.User{other}},
		{name: "school", filter: user.QueryFilter{School: "s1"}, want: []user.User{admin, teacher}},
		{name: "roles", filter: user.QueryFilter{Roles: []user.Role{user.RoleTeacher}}, want: []user.User{teacher, other}},
		{name: "inactive", filter: user.QueryFilter{IsActive: bPtr(false)}, want: []user.User{other}},
		{
			name:   "combined",
			filter: user.QueryFilter{School: "s1", Roles: []user.Role{user.RoleTeacher, user.RoleSchoolAdmin}, IsActive: bPtr(true)},
			want:   []user.User{admin, teacher},
		},
		{name: "none", filter: user.QueryFilter{Search: "nobody"}, want: []user.User{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Query(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_passwordReset(t *testing.T) {
	conf := testutil.NewConfig(t)
	svc, repo, mailSvc := testutil.NewUserService(t, conf)
	ctx := context.Background()

	usr := testutil.CreateUser(t, repo, "Tom", "Teacher", "tom@school.com", "Passw0rd", user.RoleTeacher, "s1", true)
	testutil.CreateUser(t, repo, "Ivy", "Inactive", "ivy@school.com", "Passw0rd", user.RoleTeacher, "s1", false)

	t.Run("unknown email", func(t *testing.T) {
		err := svc.RequestPasswordReset(ctx, "nobody@school.com")
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
		assert.Empty(t, mailSvc.SentMessages())
	})

	t.Run("deactivated account", func(t *testing.T) {
		err := svc.RequestPasswordReset(ctx, "ivy@school.com")
		assert.Equal(t, user.ErrAccountDeactivated, errors.Cause(err))
		assert.Empty(t, mailSvc.SentMessages())
	})

	require.NoError(t, svc.RequestPasswordReset(ctx, " Tom@School.com"))
	sent := mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "tom@school.com", sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "Hello Tom Teacher,")
	assert.Contains(t, sent[0].HTMLContent, conf.FrontendBaseURL+"/reset-password/")

	match := resetLinkRegex.FindStringSubmatch(sent[0].TextContent)
	require.Len(t, match, 2)
	token := match[1]

	got, err := svc.VerifyResetToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	invalid := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "lol"},
		{name: "tampered", token: token + "x"},
		{name: "unknown user", token: user.MakeResetToken(conf, user.User{ID: "8b5c0d5e-7a43-4bd3-a9a4-4a7c1c0a0e11"})},
		{name: "expired", token: user.MakeResetToken(conf, got, time.Now().Add(-conf.Server.PasswordResetTimeoutDelta-48*time.Hour))},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.VerifyResetToken(ctx, tt.token)
			assert.Equal(t, user.ErrInvalidResetToken, err)

			err = svc.ResetPassword(ctx, user.ResetUserPassword{Token: tt.token, Password: "N3wPassword", PasswordConfirm: "N3wPassword"})
			assert.Equal(t, user.ErrInvalidResetToken, err)
		})
	}

	require.NoError(t, svc.ResetPassword(ctx, user.ResetUserPassword{
		Token:           token,
		Password:        "N3wPassword",
		PasswordConfirm: "N3wPassword",
	}))

	_, err = svc.Authenticate(ctx, user.Credentials{Email: "tom@school.com", Password: "Passw0rd"})
	assert.Equal(t, user.ErrInvalidCredentials, err)
	_, err = svc.Authenticate(ctx, user.Credentials{Email: "tom@school.com", Password: "N3wPassword"})
	assert.NoError(t, err)

	t.Run("used token", func(t *testing.T) {
		_, err := svc.VerifyResetToken(ctx, token)
		assert.Equal(t, user.ErrInvalidResetToken, err)
	})
}

func TestService_resetTokenInvalidatedByLogin(t *testing.T) {
	conf := testutil.NewConfig(t)
	svc, repo, _ := testutil.NewUserService(t, conf)
	ctx := context.Background()

	usr := testutil.CreateUser(t, repo, "Tom", "Teacher", "tom@school.com", "Passw0rd", user.RoleTeacher, "s1", true)
	token := user.MakeResetToken(conf, usr)

	_, err := svc.VerifyResetToken(ctx, token)
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, user.Credentials{Email: "tom@school.com", Password: "Passw0rd"})
	require.NoError(t, err)

	_, err = svc.VerifyResetToken(ctx, token)
	assert.Equal(t, user.ErrInvalidResetToken, err)
}
