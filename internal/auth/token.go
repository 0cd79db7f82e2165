// Package auth issues and verifies the HS256 bearer tokens that identify a
// customer to the HTTP and gRPC surfaces.
package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"

	defaultRefreshTTL = 24 * time.Hour
	leeway            = 30 * time.Second
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token is blacklisted")
)

// Identity is who a verified token belongs to.
type Identity struct {
	UserID int64
	Admin  bool
}

type claims struct {
	Admin bool   `json:"admin,omitempty"`
	Type  string `json:"token_type"`
	jwt.RegisteredClaims
}

type Tokens struct {
	secret     []byte
	issuer     string
	ttl        time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type Option func(*Tokens)

// WithRefreshTTL sets how long refresh tokens stay valid.
func WithRefreshTTL(d time.Duration) Option {
	return func(t *Tokens) {
		if d > 0 {
			t.refreshTTL = d
		}
	}
}

func NewTokens(secret, issuer string, ttl time.Duration, opts ...Option) *Tokens {
	t := &Tokens{secret: []byte(secret), issuer: issuer, ttl: ttl, refreshTTL: defaultRefreshTTL, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Pair is what a login hands out.
type Pair struct {
	Access     string
	AccessTTL  time.Duration
	Refresh    string
	RefreshTTL time.Duration
}

// Refresh is a verified refresh token.
type Refresh struct {
	Identity
	ID        string
	ExpiresAt time.Time
}

func (t *Tokens) sign(id Identity, typ string, ttl time.Duration) (string, error) {
	now := t.now()
	c := claims{
		Admin: id.Admin,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    t.issuer,
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
}

// Issue signs an access token for the user. It returns the token and its lifetime.
func (t *Tokens) Issue(id Identity) (string, time.Duration, error) {
	signed, err := t.sign(id, typeAccess, t.ttl)
	if err != nil {
		return "", 0, err
	}
	return signed, t.ttl, nil
}

// IssuePair signs an access token and a refresh token for the user.
func (t *Tokens) IssuePair(id Identity) (Pair, error) {
	access, _, err := t.Issue(id)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := t.sign(id, typeRefresh, t.refreshTTL)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, AccessTTL: t.ttl, Refresh: refresh, RefreshTTL: t.refreshTTL}, nil
}

func (t *Tokens) parse(raw, typ string) (*claims, Identity, error) {
	var c claims
	tok, err := jwt.ParseWithClaims(raw, &c, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	},
		jwt.WithIssuer(t.issuer),
		jwt.WithLeeway(leeway),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid || c.Type != typ {
		return nil, Identity{}, ErrInvalidToken
	}
	uid, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || uid <= 0 {
		return nil, Identity{}, ErrInvalidToken
	}
	return &c, Identity{UserID: uid, Admin: c.Admin}, nil
}

// Verify accepts access tokens only.
func (t *Tokens) Verify(raw string) (Identity, error) {
	_, id, err := t.parse(raw, typeAccess)
	return id, err
}

// VerifyRefresh accepts refresh tokens only. Revocation is checked by Sessions.
func (t *Tokens) VerifyRefresh(raw string) (Refresh, error) {
	c, id, err := t.parse(raw, typeRefresh)
	if err != nil {
		return Refresh{}, err
	}
	if c.ID == "" {
		return Refresh{}, ErrInvalidToken
	}
	return Refresh{Identity: id, ID: c.ID, ExpiresAt: c.ExpiresAt.Time}, nil
}
