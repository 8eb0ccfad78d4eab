package emailsvc

import (
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-dashboard/core"
)

type recordingLogger struct{ infos, errors []string }

func (l *recordingLogger) Debug(string, ...interface{})       {}
func (l *recordingLogger) Info(msg string, _ ...interface{})  { l.infos = append(l.infos, msg) }
func (l *recordingLogger) Warn(string, ...interface{})        {}
func (l *recordingLogger) Error(msg string, _ ...interface{}) { l.errors = append(l.errors, msg) }
func (l *recordingLogger) Fatal(string, ...interface{})       {}

func newTestService(logger core.Logger) *consoleService {
	return &consoleService{
		defaultFromEmail: mail.Address{Name: "Masomo", Address: "noreply@masomo.cd"},
		subjPrefix:       "[Masomo] ",
		logger:           logger,
	}
}

func Test_consoleService_format(t *testing.T) {
	svc := newTestService(&recordingLogger{})
	msg := core.EmailMessage{
		To:          []mail.Address{{Name: "Ada", Address: "ada@wima.cd"}, {Address: "tom@wima.cd"}},
		Subject:     "Reset your password",
		TextContent: "plain body",
		HTMLContent: "<p>html body</p>",
	}

	body, err := svc.format(msg)
	require.NoError(t, err)

	assert.Contains(t, body, "From: \"Masomo\" <noreply@masomo.cd>\r\n")
	assert.Contains(t, body, "Subject: [Masomo] Reset your password\r\n")
	assert.Contains(t, body, "To: \"Ada\" <ada@wima.cd>, <tom@wima.cd>\r\n")
	assert.Contains(t, body, "Content-Type: text/plain")
	assert.Contains(t, body, "plain body")
	assert.Contains(t, body, "Content-Type: text/html")
	assert.Contains(t, body, "<p>html body</p>")
}

func Test_consoleService_format_textOnly(t *testing.T) {
	svc := newTestService(&recordingLogger{})
	body, err := svc.format(core.EmailMessage{To: []mail.Address{{Address: "ada@wima.cd"}}, TextContent: "hi"})
	require.NoError(t, err)
	assert.False(t, strings.Contains(body, "text/html"))
}

func Test_consoleService_sendMessage(t *testing.T) {
	tests := []struct {
		name     string
		msg      core.EmailMessage
		wantSent bool
	}{
		{name: "no recipients", msg: core.EmailMessage{BodyStr: "hi"}},
		{name: "no content", msg: core.EmailMessage{To: []mail.Address{{Address: "ada@wima.cd"}}}},
		{name: "plain body", msg: core.EmailMessage{To: []mail.Address{{Address: "ada@wima.cd"}}, BodyStr: "hi"}, wantSent: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &recordingLogger{}
			svc := newTestService(logger)
			msg := tt.msg
			assert.Equal(t, tt.wantSent, svc.sendMessage(&msg))
			if tt.wantSent {
				assert.Len(t, logger.infos, 1)
			} else {
				assert.Empty(t, logger.infos)
			}
			assert.Empty(t, logger.errors)
		})
	}
}
