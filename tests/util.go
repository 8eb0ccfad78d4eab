// Package testutil holds the helpers shared by the test suites.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/user"
	appfs "github.com/trezcool/masomo-dashboard/fs"
	emailsvc "github.com/trezcool/masomo-dashboard/services/email"
	"github.com/trezcool/masomo-dashboard/storage/database"
	inmemdb "github.com/trezcool/masomo-dashboard/storage/database/inmem"
)

// DatabaseURLEnv names the env var holding the Postgres URL of the database tests.
const DatabaseURLEnv = "MASOMO_TEST_DATABASE_URL"

// NewConfig loads the TEST configuration.
func NewConfig(t testing.TB) *core.Config {
	t.Helper()
	if err := os.Setenv("ENV", "TEST"); err != nil {
		t.Fatalf("NewConfig() failed: %v", err)
	}
	conf, err := core.NewConfig()
	if err != nil {
		t.Fatalf("NewConfig() failed: %v", err)
	}
	return conf
}

// PrepareDB connects to the database named by DatabaseURLEnv, migrates it and empties the tables.
// The test is skipped when the variable is unset.
func PrepareDB(t testing.TB) *sqlx.DB {
	t.Helper()
	dbURL := os.Getenv(DatabaseURLEnv)
	if dbURL == "" {
		t.Skipf("%s is not set", DatabaseURLEnv)
	}

	ctx := context.Background()
	db, err := sqlx.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(ctx, db.DB, "up"); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if _, err = db.ExecContext(ctx, `TRUNCATE TABLE "user"`); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

// NewValidator returns a validator with every custom validator of the app registered.
func NewValidator(conf *core.Config) (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator, conf.PhoneRegion)
	return validate, translator
}

// NewEmailTemplates parses the embedded email templates.
func NewEmailTemplates(t testing.TB, conf *core.Config) *core.EmailTemplates {
	t.Helper()
	tmpls, err := core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf)
	if err != nil {
		t.Fatalf("NewEmailTemplates() failed: %v", err)
	}
	return tmpls
}

// NewUserService returns a user service backed by an in-memory repository and a mail recorder.
func NewUserService(t testing.TB, conf *core.Config) (user.Service, user.Repository, *emailsvc.ConsoleServiceMock) {
	t.Helper()
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	mailSvc := emailsvc.NewConsoleServiceMock(conf, NewEmailTemplates(t, conf), Logger{t})
	return user.NewService(repo, mailSvc, conf), repo, mailSvc
}

// CreateUser stores a user straight into repo.
func CreateUser(
	t testing.TB,
	repo user.Repository,
	firstName, lastName, email, pwd string,
	role user.Role,
	school string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now()
	if len(createdAt) > 0 {
		tstamp = createdAt[0]
	}
	tstamp = tstamp.UTC().Truncate(time.Microsecond)
	usr := user.User{
		ID:        uuid.NewString(),
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Phone:     "+243810000000",
		Role:      role,
		School:    school,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// Logger writes every entry to the test log.
type Logger struct {
	T testing.TB
}

var _ core.Logger = Logger{}

func (l Logger) log(level, msg string, args []interface{}) {
	l.T.Helper()
	if len(args) == 0 {
		l.T.Logf("%s %s", level, msg)
		return
	}
	l.T.Logf("%s %s %+v", level, msg, args)
}

func (l Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l Logger) Fatal(msg string, args ...interface{}) { l.T.Fatalf("FATAL %s %+v", msg, args) }
