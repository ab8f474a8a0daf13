package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"stk-crm/internal/models"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Principal is the authenticated caller carried by an access token.
type Principal struct {
	UserID   int64        `json:"user_id"`
	Username string       `json:"username"`
	Role     string       `json:"role"`
	Store    string       `json:"store_assigned"`
	Table    models.Table `json:"-"`
}

// RefreshClaims is what a valid refresh token identifies.
type RefreshClaims struct {
	UserID    int64
	Username  string
	Table     models.Table
	ExpiresAt time.Time
}

// TokenService signs and verifies HS256 access and refresh tokens.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (s *TokenService) IssueAccess(p Principal) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":            p.Username,
		"role":           p.Role,
		"user_id":        p.UserID,
		"store_assigned": p.Store,
		"table":          string(p.Table),
		"type":           tokenTypeAccess,
		"jti":            uuid.NewString(),
		"iat":            now.Unix(),
		"exp":            now.Add(s.accessTTL).Unix(),
	}
	if p.Role == models.RoleSalesExecutive {
		claims["sales_executive_id"] = p.UserID
	}
	return s.sign(claims)
}

// IssueRefresh returns a refresh token and its expiry.
func (s *TokenService) IssueRefresh(p Principal) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.refreshTTL)
	token, err := s.sign(jwt.MapClaims{
		"sub":     p.Username,
		"user_id": p.UserID,
		"table":   string(p.Table),
		"type":    tokenTypeRefresh,
		"jti":     uuid.NewString(),
		"iat":     now.Unix(),
		"exp":     expiresAt.Unix(),
	})
	return token, expiresAt, err
}

func (s *TokenService) sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseAccess verifies an access token. Refresh tokens are rejected.
func (s *TokenService) ParseAccess(tokenString string) (*Principal, error) {
	claims, err := s.parse(tokenString, tokenTypeAccess)
	if err != nil {
		return nil, err
	}

	userID, ok := numberClaim(claims, "user_id")
	if !ok {
		return nil, ErrInvalidToken
	}
	username, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if username == "" || role == "" {
		return nil, ErrInvalidToken
	}
	store, _ := claims["store_assigned"].(string)
	table, _ := claims["table"].(string)

	return &Principal{
		UserID:   userID,
		Username: username,
		Role:     role,
		Store:    store,
		Table:    models.Table(table),
	}, nil
}

// ParseRefresh verifies a refresh token. Access tokens are rejected.
func (s *TokenService) ParseRefresh(tokenString string) (*RefreshClaims, error) {
	claims, err := s.parse(tokenString, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	userID, ok := numberClaim(claims, "user_id")
	if !ok {
		return nil, ErrInvalidToken
	}
	username, _ := claims["sub"].(string)
	tableName, _ := claims["table"].(string)
	table := models.Table(tableName)
	if username == "" || !table.Valid() {
		return nil, ErrInvalidToken
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrInvalidToken
	}

	return &RefreshClaims{
		UserID:    userID,
		Username:  username,
		Table:     table,
		ExpiresAt: exp.Time,
	}, nil
}

func (s *TokenService) parse(tokenString, wantType string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())

	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if tokenType, ok := claims["type"].(string); !ok || tokenType != wantType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// numberClaim reads an integer claim. JSON numbers decode as float64.
func numberClaim(claims jwt.MapClaims, key string) (int64, bool) {
	switch v := claims[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}
