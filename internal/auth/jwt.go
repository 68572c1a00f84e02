package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/baharkarakas/bankmore/internal/models"
)

const (
	RoleCustomer = "customer"
	// RoleService is carried by tokens the services mint for calling each
	// other; it may move any account through the gateway.
	RoleService = "service"
)

var ErrInvalidToken = errors.New("invalid token")

type TokenManager struct {
	secret     []byte
	issuer     string
	audience   string
	ttl        time.Duration
	serviceTTL time.Duration
	now        func() time.Time
}

func NewTokenManager(secret, issuer, audience string, ttl, serviceTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		issuer:     issuer,
		audience:   audience,
		ttl:        ttl,
		serviceTTL: serviceTTL,
		now:        time.Now,
	}
}

type Claims struct {
	AccountID     string `json:"aid,omitempty"`
	AccountNumber string `json:"num,omitempty"`
	Name          string `json:"name,omitempty"`
	Role          string `json:"role"`
	jwt.RegisteredClaims
}

func (tm *TokenManager) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := tm.now()
	rc := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    tm.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if tm.audience != "" {
		rc.Audience = jwt.ClaimStrings{tm.audience}
	}
	return rc
}

func (tm *TokenManager) sign(c Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(tm.secret)
}

// Generate issues a customer token for a.
func (tm *TokenManager) Generate(a models.Account) (string, time.Time, error) {
	c := Claims{
		AccountID:        a.ID,
		AccountNumber:    a.Number,
		Name:             a.Name,
		Role:             RoleCustomer,
		RegisteredClaims: tm.registered(a.ID, tm.ttl),
	}
	tok, err := tm.sign(c)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, c.ExpiresAt.Time, nil
}

func (tm *TokenManager) GenerateService(name string) (string, time.Time, error) {
	c := Claims{Name: name, Role: RoleService, RegisteredClaims: tm.registered(name, tm.serviceTTL)}
	tok, err := tm.sign(c)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, c.ExpiresAt.Time, nil
}

func (tm *TokenManager) Parse(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.now),
	}
	if tm.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tm.issuer))
	}
	if tm.audience != "" {
		opts = append(opts, jwt.WithAudience(tm.audience))
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return tm.secret, nil
	}, opts...)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Role != RoleCustomer && claims.Role != RoleService {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ServiceTokens hands out a cached service token and mints a new one
// shortly before the current one expires.
type ServiceTokens struct {
	tm   *TokenManager
	name string

	mu  sync.Mutex
	tok string
	exp time.Time
}

func (tm *TokenManager) ServiceTokens(name string) *ServiceTokens {
	return &ServiceTokens{tm: tm, name: name}
}

func (s *ServiceTokens) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tok != "" && s.tm.now().Add(30*time.Second).Before(s.exp) {
		return s.tok, nil
	}
	tok, exp, err := s.tm.GenerateService(s.name)
	if err != nil {
		return "", err
	}
	s.tok, s.exp = tok, exp
	return tok, nil
}
