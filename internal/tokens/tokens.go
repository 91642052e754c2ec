package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrMissingSubject   = errors.New("token has no subject")
	ErrMissingExpiry    = errors.New("token has no expiry")
	ErrExpired          = errors.New("token expired")
	ErrUnsupportedAlg   = errors.New("unsupported signing algorithm")
	ErrEmptySecret      = errors.New("signing secret is empty")
)

type Claims struct {
	Kind Kind `json:"token_type"`
	jwt.RegisteredClaims
}

type Pair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

type Service struct {
	secret     []byte
	method     *jwt.SigningMethodHMAC
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewService accepts HMAC algorithms only (HS256, HS384, HS512).
func NewService(secret []byte, alg string, accessTTL, refreshTTL time.Duration) (*Service, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlg, alg)
	}
	return &Service{
		secret:     secret,
		method:     method,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// WithClock returns a copy of s that reads time from now.
func (s *Service) WithClock(now func() time.Time) *Service {
	cp := *s
	cp.now = now
	return &cp
}

func (s *Service) IssuePair(subject string) (Pair, error) {
	access, accessExp, err := s.Issue(subject, KindAccess, s.accessTTL)
	if err != nil {
		return Pair{}, err
	}
	refresh, refreshExp, err := s.Issue(subject, KindRefresh, s.refreshTTL)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

func (s *Service) Issue(subject string, kind Kind, ttl time.Duration) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, ErrMissingSubject
	}
	now := s.now()
	exp := now.Add(ttl)
	claims := Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, exp, nil
}

// Decode verifies the signature first, then subject, then expiry. A token
// that is both forged and expired reports ErrInvalidSignature.
func (s *Service) Decode(token string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	if claims.ExpiresAt == nil {
		return nil, ErrMissingExpiry
	}
	if claims.ExpiresAt.Time.Before(s.now()) {
		return nil, ErrExpired
	}
	return &claims, nil
}
