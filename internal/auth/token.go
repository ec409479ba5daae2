package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind names what a token may be used for. It is carried in the "action"
// claim and must match exactly on validation.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
	KindVerify  Kind = "verify"
	KindReset   Kind = "reset"
)

var (
	// ErrInvalidToken covers bad signatures, unexpected algorithms and
	// unparseable input.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned once exp has passed.
	ErrExpiredToken = errors.New("token expired")
	// ErrMalformedToken is returned when sub is missing or not an integer.
	ErrMalformedToken = errors.New("malformed token")
	// ErrWrongAction is returned when the action claim differs from the
	// expected kind.
	ErrWrongAction = errors.New("token action mismatch")
)

// Claims is the signed claim set. Only sub, iat, exp and action are used.
type Claims struct {
	Action Kind `json:"action"`
	jwt.RegisteredClaims
}

// TTLs holds the lifetime of each token kind.
type TTLs struct {
	Access  time.Duration
	Refresh time.Duration
	Verify  time.Duration
	Reset   time.Duration
}

// DefaultTTLs returns 15m access, 7d refresh, 24h verify and 1h reset.
func DefaultTTLs() TTLs {
	return TTLs{
		Access:  15 * time.Minute,
		Refresh: 7 * 24 * time.Hour,
		Verify:  24 * time.Hour,
		Reset:   time.Hour,
	}
}

func (t TTLs) of(kind Kind) (time.Duration, bool) {
	switch kind {
	case KindAccess:
		return t.Access, true
	case KindRefresh:
		return t.Refresh, true
	case KindVerify:
		return t.Verify, true
	case KindReset:
		return t.Reset, true
	}
	return 0, false
}

// TokenService issues and validates HMAC-signed JWTs.
type TokenService struct {
	secret []byte
	method jwt.SigningMethod
	ttls   TTLs
	now    func() time.Time
}

// NewTokenService creates a token service. algorithm must be HS256, HS384 or
// HS512.
func NewTokenService(secret, algorithm string, ttls TTLs) (*TokenService, error) {
	var method jwt.SigningMethod
	switch algorithm {
	case "HS256", "":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported JWT algorithm %q", algorithm)
	}
	if secret == "" {
		return nil, errors.New("JWT secret must not be empty")
	}

	return &TokenService{
		secret: []byte(secret),
		method: method,
		ttls:   ttls,
		now:    time.Now,
	}, nil
}

// WithClock replaces the time source. Tests use it to move time forward.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Issue signs a token of the given kind for subjectID.
func (s *TokenService) Issue(subjectID int64, kind Kind) (string, error) {
	ttl, ok := s.ttls.of(kind)
	if !ok {
		return "", fmt.Errorf("unknown token kind %q", kind)
	}

	now := s.now().UTC()
	claims := &Claims{
		Action: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(subjectID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// IssuePair issues an access and a refresh token for subjectID.
func (s *TokenService) IssuePair(subjectID int64) (access, refresh string, err error) {
	if access, err = s.Issue(subjectID, KindAccess); err != nil {
		return "", "", err
	}
	if refresh, err = s.Issue(subjectID, KindRefresh); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// Validate checks algorithm, signature, expiry and action, and returns the
// subject id.
func (s *TokenService) Validate(token string, expected Kind) (int64, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, fmt.Errorf("%w: %w", ErrExpiredToken, err)
		}
		return 0, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return 0, fmt.Errorf("%w: missing subject", ErrMalformedToken)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: subject %q is not an integer", ErrMalformedToken, claims.Subject)
	}

	if claims.Action != expected {
		return 0, fmt.Errorf("%w: got %q, want %q", ErrWrongAction, claims.Action, expected)
	}

	return id, nil
}
