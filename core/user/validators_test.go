package user_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/user"
	"github.com/trezcool/masomo-dashboard/tests"
)

func validNewUser() user.NewUser {
	return user.NewUser{
		FirstName:       " Tom ",
		LastName:        "Teacher",
		Email:           " Tom@School.COM ",
		Phone:           "0810000000",
		Password:        "Passw0rd",
		PasswordConfirm: "Passw0rd",
		Role:            user.RoleTeacher,
		SchoolName:      "Lycée Wima",
	}
}

func TestNewUser_Validate(t *testing.T) {
	conf := testutil.NewConfig(t)
	validate, translator := testutil.NewValidator(conf)

	tests := []struct {
		name   string
		modify func(nu *user.NewUser)
		want   map[string]string
	}{
		{name: "valid", modify: func(nu *user.NewUser) {}},
		{name: "international phone", modify: func(nu *user.NewUser) { nu.Phone = "+243 81 000 0000" }},
		{
			name:   "required fields",
			modify: func(nu *user.NewUser) { *nu = user.NewUser{} },
			want: map[string]string{
				"firstName":       "this field is required",
				"lastName":        "this field is required",
				"email":           "this field is required",
				"phone":           "this field is required",
				"password":        "this field is required",
				"confirmPassword": "this field is required",
				"role":            "this field is required",
			},
		},
		{
			name:   "blank name",
			modify: func(nu *user.NewUser) { nu.FirstName = "   " },
			want:   map[string]string{"firstName": "this field is required"},
		},
		{
			name:   "invalid email",
			modify: func(nu *user.NewUser) { nu.Email = "tom@" },
			want:   map[string]string{"email": "enter a valid email address"},
		},
		{
			name:   "invalid phone",
			modify: func(nu *user.NewUser) { nu.Phone = "12" },
			want:   map[string]string{"phone": "enter a valid phone number"},
		},
		{
			name:   "passwords mismatch",
			modify: func(nu *user.NewUser) { nu.PasswordConfirm = "Passw0rd!" },
			want:   map[string]string{"confirmPassword": "the two password fields didn't match"},
		},
		{
			name: "password too short",
			modify: func(nu *user.NewUser) {
				nu.Password, nu.PasswordConfirm = "Pa55", "Pa55"
			},
			want: map[string]string{"password": "password must contain at least 8 characters"},
		},
		{
			name: "password too simple",
			modify: func(nu *user.NewUser) {
				nu.Password, nu.PasswordConfirm = "password", "password"
			},
			want: map[string]string{
				"password": "password must contain at least 1 uppercase character, 1 lowercase character and 1 digit",
			},
		},
		{
			name: "password similar to name",
			modify: func(nu *user.NewUser) {
				nu.Password, nu.PasswordConfirm = "Tomteacher1", "Tomteacher1"
			},
			want: map[string]string{"password": "password cannot be similar to user attributes"},
		},
		{
			name:   "platform admin cannot sign up",
			modify: func(nu *user.NewUser) { nu.Role = user.RolePlatformAdmin },
			want:   map[string]string{"role": "this role cannot be requested at registration"},
		},
		{
			name:   "unknown role",
			modify: func(nu *user.NewUser) { nu.Role = "janitor" },
			want:   map[string]string{"role": "this role cannot be requested at registration"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := validNewUser()
			tt.modify(&nu)

			err := nu.Validate(validate)
			if tt.want == nil {
				assert.NoError(t, err)
				assert.Equal(t, "tom@school.com", nu.Email, "email is cleaned")
				assert.Equal(t, "Tom", nu.FirstName)
				return
			}

			var vErr *core.ValidationError
			if assert.ErrorAs(t, core.TranslateValidationError(err, translator), &vErr) {
				assert.Equal(t, tt.want, vErr.FieldMap())
			}
		})
	}
}

func TestCredentials_Validate(t *testing.T) {
	conf := testutil.NewConfig(t)
	validate, translator := testutil.NewValidator(conf)

	creds := user.Credentials{Email: " Admin@School.com", Password: "x"}
	assert.NoError(t, creds.Validate(validate))
	assert.Equal(t, "admin@school.com", creds.Email)

	creds = user.Credentials{Email: "admin"}
	var vErr *core.ValidationError
	if assert.ErrorAs(t, core.TranslateValidationError(creds.Validate(validate), translator), &vErr) {
		assert.Equal(t, map[string]string{
			"email":    "enter a valid email address",
			"password": "this field is required",
		}, vErr.FieldMap())
	}
}

func TestResetUserPassword_Validate(t *testing.T) {
	conf := testutil.NewConfig(t)
	validate, translator := testutil.NewValidator(conf)

	data := user.ResetUserPassword{Token: "tkn", Password: "N3wPassword", PasswordConfirm: "N3wPassword"}
	assert.NoError(t, data.Validate(validate))

	data.Password, data.PasswordConfirm = "short", "short"
	var vErr *core.ValidationError
	if assert.ErrorAs(t, core.TranslateValidationError(data.Validate(validate), translator), &vErr) {
		assert.Equal(t, map[string]string{"password": "password must contain at least 8 characters"}, vErr.FieldMap())
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in     string
		want   user.Role
		wantOK bool
	}{
		{in: "teacher", want: user.RoleTeacher, wantOK: true},
		{in: " School-Admin ", want: user.RoleSchoolAdmin, wantOK: true},
		{in: "PLATFORM_ADMIN", want: user.RolePlatformAdmin, wantOK: true},
		{in: "janitor", want: "janitor"},
		{in: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := user.ParseRole(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}
