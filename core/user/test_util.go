package user

import (
	"time"

	"github.com/trezcool/masomo-dashboard/core"
)

// MakeResetToken issues a password reset token for usr as the service configured by conf would.
// issuedAt back-dates the token.
func MakeResetToken(conf *core.Config, usr User, issuedAt ...time.Time) string {
	tg := newTokenGenerator(conf.SecretKey, conf.Server.PasswordResetTimeoutDelta)
	if len(issuedAt) > 0 {
		tg.nowFunc = func() time.Time { return issuedAt[0] }
	}
	return tg.makeToken(usr)
}
