// Package navigation maps roles to the menu of sections they can reach.
package navigation

import (
	"strings"

	"github.com/trezcool/masomo-dashboard/core/user"
)

// Public paths.
const (
	SignInPath         = "/login"
	SignUpPath         = "/signup"
	ForgotPasswordPath = "/forgot-password"
	ResetPasswordPath  = "/reset-password"
)

// Icon tags a navigation entry.
type Icon int

const (
	IconNone Icon = iota
	IconDashboard
	IconSchool
	IconUsers
	IconStudents
	IconTeachers
	IconClasses
	IconAttendance
	IconAssignments
	IconGrades
	IconTimetable
	IconFees
	IconPayroll
	IconExpenses
	IconLibrary
	IconTransport
	IconChildren
	IconSubscriptions
	IconReports
	IconSettings
	IconProfile
)

var iconNames = [...]string{
	IconNone:          "none",
	IconDashboard:     "dashboard",
	IconSchool:        "school",
	IconUsers:         "users",
	IconStudents:      "students",
	IconTeachers:      "teachers",
	IconClasses:       "classes",
	IconAttendance:    "attendance",
	IconAssignments:   "assignments",
	IconGrades:        "grades",
	IconTimetable:     "timetable",
	IconFees:          "fees",
	IconPayroll:       "payroll",
	IconExpenses:      "expenses",
	IconLibrary:       "library",
	IconTransport:     "transport",
	IconChildren:      "children",
	IconSubscriptions: "subscriptions",
	IconReports:       "reports",
	IconSettings:      "settings",
	IconProfile:       "profile",
}

func (i Icon) String() string {
	if i < 0 || int(i) >= len(iconNames) {
		return iconNames[IconNone]
	}
	return iconNames[i]
}

// Entry is one item of a navigation menu.
type Entry struct {
	Title    string  `json:"title"`
	Path     string  `json:"path"`
	Icon     Icon    `json:"icon"`
	Children []Entry `json:"children,omitempty"`
}

// Reaches reports whether path is the entry's path, lies below it, or is reached by one of its children.
func (e Entry) Reaches(path string) bool {
	if path == e.Path || strings.HasPrefix(path, e.Path+"/") {
		return true
	}
	for _, child := range e.Children {
		if child.Reaches(path) {
			return true
		}
	}
	return false
}

func (e Entry) clone() Entry {
	e.Children = cloneEntries(e.Children)
	return e
}

func cloneEntries(entries []Entry) []Entry {
	if entries == nil {
		return nil
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = e.clone()
	}
	return out
}

// Resolve returns the ordered menu of the role. Unknown roles get an empty menu.
func Resolve(role user.Role) []Entry {
	entries, ok := menus[role]
	if !ok {
		return []Entry{}
	}
	return cloneEntries(entries)
}

// HomeRouteFor returns the landing view of the role, or the sign-in path for unknown roles.
func HomeRouteFor(role user.Role) string {
	if path, ok := homeRoutes[role]; ok {
		return path
	}
	return SignInPath
}

// RolesFor returns the roles whose menu reaches path, in user.AllRoles order.
func RolesFor(path string) []user.Role {
	path = cleanPath(path)
	roles := make([]user.Role, 0)
	for _, role := range user.AllRoles {
		for _, e := range menus[role] {
			if e.Reaches(path) {
				roles = append(roles, role)
				break
			}
		}
	}
	return roles
}

// IsPublic reports whether path is reachable without a session.
func IsPublic(path string) bool {
	path = cleanPath(path)
	for _, p := range []string{SignInPath, SignUpPath, ForgotPasswordPath, ResetPasswordPath} {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func cleanPath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}
