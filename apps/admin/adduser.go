package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/user"
)

// newAdminUser is not bound by the sign up rules: any role may be granted from the CLI.
type newAdminUser struct {
	FirstName string
	LastName  string
	Email     string `validate:"required,email"`
	Phone     string
	Role      user.Role `validate:"required,role"`
	School    string
	Password  string `validate:"required"`
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(nu newAdminUser) error {
	ctx := context.Background()
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	if err := cli.validate.Struct(nu); err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	usr, err := cli.usrRepo.GetUserByEmail(ctx, nu.Email)
	exists := err == nil
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr = user.User{
			ID:        uuid.NewString(),
			Email:     nu.Email,
			CreatedAt: now,
		}
	}
	usr.FirstName = core.CleanString(nu.FirstName)
	usr.LastName = core.CleanString(nu.LastName)
	if phone := core.CleanString(nu.Phone); phone != "" {
		usr.Phone = phone
	}
	usr.Role = nu.Role
	usr.School = core.CleanString(nu.School)
	if usr.Role == user.RolePlatformAdmin {
		usr.School = ""
	}
	usr.IsActive = true
	usr.UpdatedAt = now
	if err := usr.SetPassword(nu.Password); err != nil {
		return err
	}

	if exists {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	}
	return err
}
