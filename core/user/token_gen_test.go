package user

import (
	"strings"
	"testing"
	"time"
)

func TestMakeVerifyToken(t *testing.T) {
	tg := newTokenGenerator("secret", 3*24*time.Hour)

	now := time.Now()
	usr := User{
		ID:        "8b5c0d5e-7a43-4bd3-a9a4-4a7c1c0a0e11",
		FirstName: "T",
		Email:     "t@test.test",
		Role:      RoleTeacher,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	_ = usr.SetPassword("Passw0rd!")

	_, validToken, err := splitToken(tg.makeToken(usr))
	if err != nil {
		t.Fatalf("splitToken() failed: %v", err)
	}

	// generate an expired token
	dayLate := tg.timeout + (24 * time.Hour)
	tg.nowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	_, expiredToken, _ := splitToken(tg.makeToken(usr))
	tg.nowFunc = time.Now // reset

	// any login since the token was issued invalidates it
	loggedIn := usr
	loggedIn.LastLogin = now.Add(time.Minute)

	// so does a password change
	pwdChanged := usr
	_ = pwdChanged.SetPassword("N3wPassword")

	tests := []struct {
		name    string
		usr     User
		token   string
		wantErr error
	}{
		{name: "no token", usr: usr, wantErr: errInvalidToken},
		{name: "invalid parts len", usr: usr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", usr: usr, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", usr: usr, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", usr: usr, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "expired token", usr: usr, token: expiredToken, wantErr: errTokenExpired},
		{name: "used token: logged in", usr: loggedIn, token: validToken, wantErr: errInvalidToken},
		{name: "used token: password changed", usr: pwdChanged, token: validToken, wantErr: errInvalidToken},
		{name: "valid token", usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tg.verifyToken(tt.usr, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestVerifyToken_otherSecret(t *testing.T) {
	usr := User{ID: "42", Email: "t@test.test"}
	token := newTokenGenerator("secret", 24*time.Hour).makeToken(usr)
	_, signed, _ := splitToken(token)

	if err := newTokenGenerator("other", 24*time.Hour).verifyToken(usr, signed); err != errInvalidToken {
		t.Errorf("verifyToken() error = %v, wantErr %v", err, errInvalidToken)
	}
}

func TestSplitToken(t *testing.T) {
	usr := User{ID: "8b5c0d5e-7a43-4bd3-a9a4-4a7c1c0a0e11"}
	token := newTokenGenerator("secret", 24*time.Hour).makeToken(usr)

	tests := []struct {
		name    string
		token   string
		wantUID string
		wantErr bool
	}{
		{name: "empty", wantErr: true},
		{name: "no uid", token: ".NRXWY-sig", wantErr: true},
		{name: "no dot", token: "NRXWY-sig", wantErr: true},
		{name: "bad base64", token: "$$$.NRXWY-sig", wantErr: true},
		{name: "valid", token: token, wantUID: usr.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uid, signed, err := splitToken(tt.token)
			if (err != nil) != tt.wantErr {
				t.Fatalf("splitToken() error = %v, wantErr %v", err, tt.wantErr)
			}
			if uid != tt.wantUID {
				t.Errorf("splitToken() uid = %q, want %q", uid, tt.wantUID)
			}
			if !tt.wantErr && !strings.Contains(signed, "-") {
				t.Errorf("splitToken() signed = %q, want `<ts>-<sig>`", signed)
			}
		})
	}
}
