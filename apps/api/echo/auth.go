package echoapi

import (
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/user"
)

const (
	contextTokenKey = "userToken"
	contextUserKey  = "user"
	tokenAudience   = "Dashboard"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Email  string    `json:"email,omitempty"`
	Role   user.Role `json:"role,omitempty"`
	School string    `json:"school,omitempty"`
}

// tokenIssuer signs the session tokens and remembers the ones revoked by a sign-out.
type tokenIssuer struct {
	jwtConfig middleware.JWTConfig
	issuer    string
	ttl       time.Duration
	nowFunc   func() time.Time // mockable
	revoked   *revocations
}

func newTokenIssuer(conf *core.Config) *tokenIssuer {
	return &tokenIssuer{
		jwtConfig: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    contextTokenKey,
			Claims:        new(Claims),
		},
		issuer:  conf.AppName,
		ttl:     conf.Server.JWTExpirationDelta,
		nowFunc: time.Now,
		revoked: newRevocations(time.Now),
	}
}

func (ti *tokenIssuer) claims(usr user.User) *Claims {
	now := ti.nowFunc()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Issuer:    ti.issuer,
			Subject:   usr.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(ti.ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
		Email:  usr.Email,
		Role:   usr.Role,
		School: usr.School,
	}
}

// generate signs a token for usr.
func (ti *tokenIssuer) generate(usr user.User) (string, error) {
	return ti.sign(ti.claims(usr))
}

func (ti *tokenIssuer) sign(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(ti.jwtConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(ti.jwtConfig.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (ti *tokenIssuer) middleware() echo.MiddlewareFunc {
	return middleware.JWTWithConfig(ti.jwtConfig)
}

func (ti *tokenIssuer) revoke(claims Claims) {
	ti.revoked.add(claims.Id, time.Unix(claims.ExpiresAt, 0))
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextUser returns the user loaded by sessionMiddleware.
func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}

// revocations holds the IDs of signed out tokens until they expire.
type revocations struct {
	mu      sync.Mutex
	ids     map[string]time.Time
	nowFunc func() time.Time
}

func newRevocations(nowFunc func() time.Time) *revocations {
	return &revocations{ids: make(map[string]time.Time), nowFunc: nowFunc}
}

func (r *revocations) add(id string, expiresAt time.Time) {
	if id == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune()
	r.ids[id] = expiresAt
}

func (r *revocations) has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ids[id]
	return ok
}

// prune forgets expired tokens: the JWT middleware rejects them anyway.
func (r *revocations) prune() {
	now := r.nowFunc()
	for id, exp := range r.ids {
		if now.After(exp) {
			delete(r.ids, id)
		}
	}
}
