package user

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/masomo-dashboard/core"
)

// Role is assigned server-side and determines feature access and the default landing view.
type Role string

// Roles
const (
	RolePlatformAdmin Role = "platform_admin"
	RoleSchoolAdmin   Role = "school_admin"
	RoleTeacher       Role = "teacher"
	RoleStudent       Role = "student"
	RoleParent        Role = "parent"
	RoleAccountant    Role = "accountant"
)

var (
	AllRoles = []Role{RolePlatformAdmin, RoleSchoolAdmin, RoleTeacher, RoleStudent, RoleParent, RoleAccountant}

	// SignUpRoles may be requested through public registration.
	SignUpRoles = []Role{RoleSchoolAdmin, RoleTeacher, RoleStudent, RoleParent, RoleAccountant}

	rolePriorities = map[Role]int{
		RolePlatformAdmin: 60,
		RoleSchoolAdmin:   50,
		RoleAccountant:    40,
		RoleTeacher:       30,
		RoleParent:        20,
		RoleStudent:       10,
	}

	roleNames = map[Role]string{
		RolePlatformAdmin: "Platform Admin",
		RoleSchoolAdmin:   "School Admin",
		RoleTeacher:       "Teacher",
		RoleStudent:       "Student",
		RoleParent:        "Parent",
		RoleAccountant:    "Accountant",
	}
)

// ParseRole returns the Role matching s (case-insensitive, "-" accepted for "_").
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ReplaceAll(core.CleanString(s, true /* lower */), "-", "_"))
	return r, r.IsValid()
}

func (r Role) IsValid() bool {
	_, ok := rolePriorities[r]
	return ok
}

// Priority ranks roles; a user may never grant a role above their own.
func (r Role) Priority() int {
	return rolePriorities[r]
}

func (r Role) Name() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "Unknown"
}

func (r Role) IsAdmin() bool {
	return r == RolePlatformAdmin || r == RoleSchoolAdmin
}

func (r Role) signUpAllowed() bool {
	for _, role := range SignUpRoles {
		if role == r {
			return true
		}
	}
	return false
}

// Identity is the authenticated user's profile as exposed to clients.
type Identity struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	School    string `json:"school,omitempty"`
	IsActive  bool   `json:"isActive"`
}

func (id Identity) FullName() string {
	return strings.TrimSpace(id.FirstName + " " + id.LastName)
}

// Valid reports whether the identity can back a session.
func (id Identity) Valid() bool {
	return id.ID != "" && id.Role.IsValid()
}

type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Role         Role      `json:"role"`
	School       string    `json:"school"`
	IsActive     bool      `json:"isActive"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"` // UTC
	UpdatedAt    time.Time `json:"updatedAt"` // UTC
	LastLogin    time.Time `json:"lastLogin"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) Identity() Identity {
	return Identity{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
		School:    u.School,
		IsActive:  u.IsActive,
	}
}

func (u User) Name() string {
	return u.Identity().FullName()
}

// Credentials are submitted to sign in.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (c *Credentials) Validate(validate *validator.Validate) error {
	c.Email = core.CleanString(c.Email, true /* lower */)
	return validate.Struct(c)
}

// NewUser contains the profile fields submitted to sign up.
type NewUser struct {
	FirstName       string `json:"firstName" validate:"required,notblank"`
	LastName        string `json:"lastName" validate:"required,notblank"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"required,phone"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"confirmPassword" validate:"required,eqfield=Password"`
	Role            Role   `json:"role" validate:"required,signuprole"`
	SchoolName      string `json:"schoolName,omitempty"`
}

func (nu *NewUser) Clean() {
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.LastName = core.CleanString(nu.LastName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Phone = core.CleanString(nu.Phone)
	nu.SchoolName = core.CleanString(nu.SchoolName)
}

// Validate runs the client-side checks; the server additionally checks email uniqueness.
func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Clean()
	return validate.Struct(nu)
}

// ResetUserPassword is submitted to finalize a password reset.
type ResetUserPassword struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type QueryFilter struct {
	Search   string `query:"search"`
	School   string `query:"school"`
	Roles    []Role `query:"role"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.School = core.CleanString(qf.School)
}
