package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"syscall"
	"time"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/guard"
	"github.com/trezcool/masomo-dashboard/core/navigation"
	"github.com/trezcool/masomo-dashboard/core/session"
	"github.com/trezcool/masomo-dashboard/core/user"
	credstore "github.com/trezcool/masomo-dashboard/storage/credentials"
)

const (
	pendingChecks   = 20
	pendingInterval = 50 * time.Millisecond
	watchDebounce   = 100 * time.Millisecond
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp         = errors.New("help provided")
	errNotSignedIn  = errors.New("not signed in")
	errUnknownView  = errors.New("unknown view")
	errStillPending = errors.New("still loading, please try again")
)

func (a *app) printUsage() {
	a.println("Usage:")
	a.println("  login -email EMAIL - sign in (the password is prompted)")
	a.println("  signup -first NAME -last NAME -email EMAIL -phone PHONE -role ROLE [-school SCHOOL] - create an account")
	a.println("  logout - sign out")
	a.println("  whoami - show the signed in user")
	a.println("  menu - show the navigation menu of the signed in user")
	a.println("  open PATH - open a view")
	a.println("  get PATH - fetch data from the API")
	a.println("  forgot-password -email EMAIL - request a password reset link")
	a.println("  reset-password -token TOKEN - set a new password with a reset link token")
	a.println("  watch - follow sign-ins and sign-outs made by other dashboards")
}

func (a *app) promptPassword(prompt string) (string, error) {
	fmt.Fprint(a.out, prompt)
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Fprintln(a.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (a *app) run(ctx context.Context, args []string) error {
	a.notified.Store(false)
	if len(args) < 2 {
		a.printUsage()
		return errHelp
	}

	loginCmd := flag.NewFlagSet("login", flag.ExitOnError)
	loginEmail := loginCmd.String("email", "", "Your email. The password will be prompted next.")

	signUpCmd := flag.NewFlagSet("signup", flag.ExitOnError)
	signUpFirst := signUpCmd.String("first", "", "Your first name.")
	signUpLast := signUpCmd.String("last", "", "Your last name.")
	signUpEmail := signUpCmd.String("email", "", "Your email. The password will be prompted next.")
	signUpPhone := signUpCmd.String("phone", "", "Your phone number.")
	signUpRole := signUpCmd.String("role", "", "Your role: school_admin, teacher, student, parent or accountant.")
	signUpSchool := signUpCmd.String("school", "", "Your school.")

	forgotCmd := flag.NewFlagSet("forgot-password", flag.ExitOnError)
	forgotEmail := forgotCmd.String("email", "", "The email of your account.")

	resetCmd := flag.NewFlagSet("reset-password", flag.ExitOnError)
	resetToken := resetCmd.String("token", "", "The token of the reset link. The new password will be prompted next.")

	switch args[1] {
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loginEmail == "" {
			loginCmd.Usage()
			return errHelp
		}
		pwd, err := a.promptPassword("Password:")
		if err != nil {
			return err
		}
		return a.login(ctx, *loginEmail, pwd)

	case "signup":
		if err := signUpCmd.Parse(args[2:]); err != nil {
			return err
		}
		pwd, err := a.promptPassword("Password:")
		if err != nil {
			return err
		}
		confirm, err := a.promptPassword("Confirm password:")
		if err != nil {
			return err
		}
		role, _ := user.ParseRole(*signUpRole)
		return a.signUp(ctx, user.NewUser{
			FirstName:       *signUpFirst,
			LastName:        *signUpLast,
			Email:           *signUpEmail,
			Phone:           *signUpPhone,
			Password:        pwd,
			PasswordConfirm: confirm,
			Role:            role,
			SchoolName:      *signUpSchool,
		})

	case "logout":
		return a.logout(ctx)

	case "whoami":
		return a.whoami(ctx)

	case "menu":
		return a.menu(ctx)

	case "open":
		if len(args) < 3 {
			a.printUsage()
			return errHelp
		}
		return a.open(ctx, args[2])

	case "get":
		if len(args) < 3 {
			a.printUsage()
			return errHelp
		}
		return a.get(ctx, args[2])

	case "forgot-password":
		if err := forgotCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *forgotEmail == "" {
			forgotCmd.Usage()
			return errHelp
		}
		return a.forgotPassword(ctx, *forgotEmail)

	case "reset-password":
		if err := resetCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetToken == "" {
			resetCmd.Usage()
			return errHelp
		}
		return a.resetPassword(ctx, *resetToken)

	case "watch":
		return a.watch(ctx)

	default:
		a.printUsage()
		return errHelp
	}
}

func (a *app) login(ctx context.Context, email, pwd string) error {
	if err := a.mgr.SignIn(ctx, email, pwd); err != nil {
		return err
	}
	id := a.mgr.Session().Identity
	a.nav.Navigate(navigation.HomeRouteFor(id.Role))
	a.notice(noticeSuccess, fmt.Sprintf("signed in as %s (%s)", id.FullName(), id.Role.Name()))
	a.println(a.nav.Current())
	return nil
}

func (a *app) signUp(ctx context.Context, nu user.NewUser) error {
	if err := a.mgr.SignUp(ctx, nu); err != nil {
		return err
	}
	a.nav.Navigate(navigation.SignInPath)
	a.notice(noticeSuccess, "account created, you can now sign in")
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if err := a.mgr.SignOut(ctx); err != nil {
		return err
	}
	a.nav.Navigate(navigation.SignInPath)
	a.notice(noticeSuccess, "signed out")
	return nil
}

// identity waits for the guard to settle on the signed in identity.
func (a *app) identity(ctx context.Context) (user.Identity, error) {
	view := guard.View{Path: a.nav.Current()}
	for i := 0; i < pendingChecks; i++ {
		d := a.guard.Check(ctx, view)
		switch d.Outcome {
		case guard.Render, guard.Redirect:
			sess := a.mgr.Session()
			if sess.Identity == nil {
				return user.Identity{}, errNotSignedIn
			}
			return *sess.Identity, nil
		}
		if d.Err != nil {
			return user.Identity{}, d.Err
		}
		if err := sleep(ctx, pendingInterval); err != nil {
			return user.Identity{}, err
		}
	}
	return user.Identity{}, errStillPending
}

func (a *app) whoami(ctx context.Context) error {
	id, err := a.identity(ctx)
	if err != nil {
		return err
	}
	a.println(renderIdentity(id))
	return nil
}

func (a *app) menu(ctx context.Context) error {
	id, err := a.identity(ctx)
	if err != nil {
		return err
	}
	a.println(renderMenu(id.Role, navigation.Resolve(id.Role), a.nav.Current()))
	return nil
}

// open performs the guard check of path and moves to wherever it leads.
func (a *app) open(ctx context.Context, path string) error {
	if navigation.IsPublic(path) {
		a.nav.Navigate(path)
		a.println(path)
		return nil
	}
	view, ok := guard.ViewFor(path)
	if !ok {
		return pkgerrors.Wrap(errUnknownView, path)
	}

	for i := 0; i < pendingChecks; i++ {
		d := a.guard.Check(ctx, view)
		switch d.Outcome {
		case guard.Render:
			a.nav.Navigate(path)
			a.println(path)
			return nil
		case guard.Redirect:
			a.nav.Navigate(d.Path)
			if d.Path == navigation.SignInPath && !a.notified.Load() {
				a.notice(noticeWarning, "please sign in")
			}
			a.println(d.Path)
			return nil
		}
		if d.Err != nil {
			// the identity could not be fetched: give it one more go
			a.guard.Retry()
			if i > 0 {
				return d.Err
			}
		}
		if err := sleep(ctx, pendingInterval); err != nil {
			return err
		}
	}
	return errStillPending
}

func (a *app) get(ctx context.Context, path string) error {
	if a.mgr.Token() == "" {
		return errNotSignedIn
	}
	data, err := a.client.Get(ctx, path)
	if err != nil {
		return err
	}
	var out bytes.Buffer
	if err = json.Indent(&out, data, "", "  "); err != nil {
		return pkgerrors.Wrap(err, "formatting response")
	}
	a.println(out.String())
	return nil
}

func (a *app) forgotPassword(ctx context.Context, email string) error {
	msg, err := a.client.ForgotPassword(ctx, email)
	if err != nil {
		return err
	}
	a.notice(noticeInfo, msg)
	return nil
}

func (a *app) resetPassword(ctx context.Context, token string) error {
	if err := a.client.VerifyResetToken(ctx, token); err != nil {
		return err
	}
	pwd, err := a.promptPassword("New password:")
	if err != nil {
		return err
	}
	confirm, err := a.promptPassword("Confirm new password:")
	if err != nil {
		return err
	}

	data := user.ResetUserPassword{Token: token, Password: pwd, PasswordConfirm: confirm}
	if err = data.Validate(a.validate); err != nil {
		return core.TranslateValidationError(err, a.translator)
	}
	msg, err := a.client.ResetPassword(ctx, data)
	if err != nil {
		return err
	}
	a.nav.Navigate(navigation.SignInPath)
	a.notice(noticeSuccess, msg)
	return nil
}

// watch follows the credentials file until ctx is done.
func (a *app) watch(ctx context.Context) error {
	if a.credsPath == "" {
		return errors.New("no credentials file to watch")
	}
	w, err := credstore.Watch(a.credsPath, watchDebounce, a.mgr.Reload, a.logger)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	lastToken := a.mgr.Token()
	cancel := a.mgr.Subscribe(func(sess session.Session) {
		if sess.Token == lastToken {
			return
		}
		lastToken = sess.Token
		if sess.IsAuthenticated() {
			a.nav.Navigate(navigation.HomeRouteFor(sess.Identity.Role))
			a.notice(noticeInfo, "signed in as "+sess.Identity.FullName())
		} else if sess.Token == "" {
			a.nav.Navigate(navigation.SignInPath)
			a.notice(noticeInfo, "signed out")
		}
	})
	defer cancel()

	a.notice(noticeInfo, "watching "+a.credsPath)
	<-ctx.Done()
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
