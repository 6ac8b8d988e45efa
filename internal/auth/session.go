// Package auth issues and verifies the signed session token kept in the
// portal's session cookie.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// CookieName is the name of the HttpOnly session cookie.
	CookieName = "portal_session"
	issuer     = "health-portal"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrRevoked      = errors.New("session has been revoked")
)

// RevocationStore remembers logged-out token ids.
type RevocationStore interface {
	RevokeSession(tokenID string, ttl time.Duration) error
	IsSessionRevoked(tokenID string) (bool, error)
}

// Session is the verified content of a token.
type Session struct {
	UserID    uint
	TokenID   string
	ExpiresAt time.Time
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	store  RevocationStore
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration, store RevocationStore) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl, store: store, now: time.Now}
}

func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue signs a new HS256 token for userID.
func (m *Manager) Issue(userID uint) (string, Session, error) {
	tokenID, err := uuid.NewRandom()
	if err != nil {
		return "", Session{}, err
	}
	now := m.now()
	s := Session{UserID: userID, TokenID: tokenID.String(), ExpiresAt: now.Add(m.ttl)}

	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"jti": s.TokenID,
		"iat": now.Unix(),
		"exp": s.ExpiresAt.Unix(),
		"iss": issuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", Session{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, s, nil
}

// Parse verifies signature, issuer and expiry, then consults the revocation list.
func (m *Manager) Parse(tokenString string) (Session, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return Session{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Session{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	userID, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || userID == 0 {
		return Session{}, ErrInvalidToken
	}
	tokenID, _ := claims["jti"].(string)
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return Session{}, ErrInvalidToken
	}

	s := Session{UserID: uint(userID), TokenID: tokenID, ExpiresAt: exp.Time}
	if m.store != nil {
		revoked, err := m.store.IsSessionRevoked(tokenID)
		if err != nil {
			return Session{}, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return Session{}, ErrRevoked
		}
	}
	return s, nil
}

// Revoke blocks s for the rest of its lifetime.
func (m *Manager) Revoke(s Session) error {
	if m.store == nil {
		return nil
	}
	return m.store.RevokeSession(s.TokenID, s.ExpiresAt.Sub(m.now()))
}
