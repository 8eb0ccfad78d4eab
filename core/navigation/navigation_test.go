package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-dashboard/core/user"
)

func TestResolve(t *testing.T) {
	for _, role := range user.AllRoles {
		t.Run(string(role), func(t *testing.T) {
			first := Resolve(role)
			require.NotEmpty(t, first)
			assert.Equal(t, first, Resolve(role), "resolve is deterministic")
			assert.Equal(t, HomeRouteFor(role), first[0].Path, "the home route comes first")

			// callers cannot alter the tables
			first[0].Title = "Hacked"
			for i := range first {
				if len(first[i].Children) > 0 {
					first[i].Children[0].Path = "/hacked"
				}
			}
			assert.NotEqual(t, "Hacked", Resolve(role)[0].Title)
			assert.Empty(t, RolesFor("/hacked"))
		})
	}
}

func TestResolve_unknownRole(t *testing.T) {
	for _, role := range []user.Role{"", "janitor", "PLATFORM_ADMIN"} {
		got := Resolve(role)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestHomeRouteFor(t *testing.T) {
	tests := []struct {
		role user.Role
		want string
	}{
		{role: user.RolePlatformAdmin, want: "/platform/dashboard"},
		{role: user.RoleSchoolAdmin, want: "/school-admin/dashboard"},
		{role: user.RoleTeacher, want: "/teacher/dashboard"},
		{role: user.RoleStudent, want: "/student/dashboard"},
		{role: user.RoleParent, want: "/parent/dashboard"},
		{role: user.RoleAccountant, want: "/accountant/dashboard"},
		{role: "", want: SignInPath},
		{role: "janitor", want: SignInPath},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			if got := HomeRouteFor(tt.role); got != tt.want {
				t.Errorf("HomeRouteFor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRolesFor(t *testing.T) {
	tests := []struct {
		path string
		want []user.Role
	}{
		{path: "/school-admin/dashboard", want: []user.Role{user.RoleSchoolAdmin}},
		{path: "/school-admin/students/42", want: []user.Role{user.RoleSchoolAdmin}},
		{path: "/school-admin/fees/payments/", want: []user.Role{user.RoleSchoolAdmin}},
		{path: "/accountant/fees/invoices?page=2", want: []user.Role{user.RoleAccountant}},
		{path: "teacher/grades", want: []user.Role{user.RoleTeacher}},
		{path: "/profile", want: user.AllRoles},
		{path: "/school-admin/secrets", want: []user.Role{}},
		{path: "/school-admin", want: []user.Role{}},
		{path: "/teacher/gradesheet", want: []user.Role{}},
		{path: "/", want: []user.Role{}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, RolesFor(tt.path))
		})
	}
}

func TestIsPublic(t *testing.T) {
	assert.True(t, IsPublic("/login"))
	assert.True(t, IsPublic("/reset-password/abc.def-ghi"))
	assert.True(t, IsPublic("/signup/"))
	assert.False(t, IsPublic("/loginx"))
	assert.False(t, IsPublic("/profile"))
}

func TestIcon_String(t *testing.T) {
	assert.Equal(t, "dashboard", IconDashboard.String())
	assert.Equal(t, "profile", IconProfile.String())
	assert.Equal(t, "none", IconNone.String())
	assert.Equal(t, "none", Icon(-1).String())
	assert.Equal(t, "none", Icon(1000).String())
}
