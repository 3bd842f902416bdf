package access

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"inkwell/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer   = "inkwell-api"
	tokenAudience = "inkwell-client"
	defaultTTL    = 7 * 24 * time.Hour
)

// ErrInvalidToken is returned for tokens that fail verification.
var ErrInvalidToken = errors.New("invalid or expired token")

// IdentityProvider resolves a bearer token to the requester.
type IdentityProvider interface {
	Resolve(ctx context.Context, token string) (*Identity, error)
}

// JWTProvider issues and verifies HS256 tokens.
type JWTProvider struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTProvider returns a provider signing with secret. A zero ttl means
// seven days.
func NewJWTProvider(secret string, ttl time.Duration) *JWTProvider {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &JWTProvider{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue creates a signed token for user.
func (p *JWTProvider) Issue(user *models.User) (string, error) {
	if len(p.secret) == 0 {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := p.now()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(user.ID), 10),
		"username": user.Username,
		"iss":      tokenIssuer,
		"aud":      tokenAudience,
		"exp":      now.Add(p.ttl).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.secret)
}

// Resolve verifies token and returns the identity it names.
func (p *JWTProvider) Resolve(_ context.Context, token string) (*Identity, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithTimeFunc(p.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrInvalidToken
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, ErrInvalidToken
	}

	username, _ := claims["username"].(string)
	return &Identity{UserID: uint(userID), Username: username}, nil
}

// UserLookup finds a stored user by id.
type UserLookup interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// ExistingUsers resolves tokens through next and then requires the named
// user to still be stored. The username is taken from the stored row.
type ExistingUsers struct {
	next  IdentityProvider
	users UserLookup
}

// NewExistingUsers wraps next with a lookup against users.
func NewExistingUsers(next IdentityProvider, users UserLookup) *ExistingUsers {
	return &ExistingUsers{next: next, users: users}
}

// Resolve returns ErrInvalidToken when the token is bad or its user is gone.
// Lookup failures other than not-found are returned as is.
func (e *ExistingUsers) Resolve(ctx context.Context, token string) (*Identity, error) {
	id, err := e.next.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := e.users.GetByID(ctx, id.UserID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidToken
	}
	return &Identity{UserID: user.ID, Username: user.Username}, nil
}
