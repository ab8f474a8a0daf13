package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"stk-crm/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingToken       = errors.New("refresh token is required")
	ErrUnknownPrincipal   = errors.New("user not found")
	ErrTokenRevoked       = errors.New("refresh token has been revoked")
)

// loginOrder is the order credential tables are searched on login.
var loginOrder = []models.Table{models.TableUsers, models.TableTeamLeads, models.TableStoreManagers}

// CredentialStore is the persistence auth needs.
type CredentialStore interface {
	FindCredential(ctx context.Context, table models.Table, identifier string) (*models.Credential, error)
	SaveRefreshToken(ctx context.Context, table models.Table, id int64, token string) error
}

// Session is the token pair handed to a client.
type Session struct {
	AccessToken  string
	RefreshToken string
	Role         string
}

type Service struct {
	store        CredentialStore
	tokens       *TokenService
	rotateWindow time.Duration
	logger       *zap.Logger
}

// NewService builds the auth service. Refresh tokens are rotated once less
// than rotateWindow of their lifetime remains.
func NewService(store CredentialStore, tokens *TokenService, rotateWindow time.Duration, logger *zap.Logger) *Service {
	return &Service{store: store, tokens: tokens, rotateWindow: rotateWindow, logger: logger}
}

func (s *Service) Tokens() *TokenService {
	return s.tokens
}

// Login checks the users table, then team leads, then store managers. The
// first account whose password matches wins.
func (s *Service) Login(ctx context.Context, identifier, password string) (*Session, error) {
	for _, table := range loginOrder {
		cred, err := s.store.FindCredential(ctx, table, identifier)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !CheckPassword(cred.HashedPassword, password) {
			continue
		}

		p := principalOf(cred)
		access, err := s.tokens.IssueAccess(p)
		if err != nil {
			return nil, err
		}
		refresh, _, err := s.tokens.IssueRefresh(p)
		if err != nil {
			return nil, err
		}
		if err := s.store.SaveRefreshToken(ctx, table, cred.ID, refresh); err != nil {
			return nil, err
		}

		s.logger.Info("login succeeded", zap.String("username", cred.Username), zap.String("role", cred.Role))
		return &Session{AccessToken: access, RefreshToken: refresh, Role: cred.Role}, nil
	}

	s.logger.Debug("login rejected", zap.String("username", identifier))
	return nil, ErrInvalidCredentials
}

// Refresh trades a refresh token for a new access token. The presented
// refresh token must be the one stored for the principal.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrMissingToken
	}
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	cred, err := s.store.FindCredential(ctx, claims.Table, claims.Username)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrUnknownPrincipal
	}
	if err != nil {
		return nil, err
	}
	if cred.ID != claims.UserID {
		return nil, ErrUnknownPrincipal
	}
	if !cred.RefreshToken.Valid || cred.RefreshToken.String != refreshToken {
		return nil, ErrTokenRevoked
	}

	p := principalOf(cred)
	access, err := s.tokens.IssueAccess(p)
	if err != nil {
		return nil, err
	}

	session := &Session{AccessToken: access, RefreshToken: refreshToken, Role: cred.Role}
	if claims.ExpiresAt.Sub(s.tokens.now()) < s.rotateWindow {
		rotated, _, err := s.tokens.IssueRefresh(p)
		if err != nil {
			return nil, err
		}
		if err := s.store.SaveRefreshToken(ctx, cred.Table, cred.ID, rotated); err != nil {
			return nil, err
		}
		session.RefreshToken = rotated
		s.logger.Debug("refresh token rotated", zap.String("username", cred.Username))
	}
	return session, nil
}

// Logout forgets the principal's refresh token.
func (s *Service) Logout(ctx context.Context, p *Principal) error {
	if !p.Table.Valid() {
		return fmt.Errorf("principal %s: %w", p.Username, ErrInvalidToken)
	}
	return s.store.SaveRefreshToken(ctx, p.Table, p.UserID, "")
}

func principalOf(c *models.Credential) Principal {
	return Principal{
		UserID:   c.ID,
		Username: c.Username,
		Role:     c.Role,
		Store:    c.Store,
		Table:    c.Table,
	}
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func CheckPassword(hashed, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}

// UserEnsurer creates a user unless the username already exists.
type UserEnsurer interface {
	EnsureUser(ctx context.Context, u *models.User) (bool, error)
}

// EnsureDirector creates the director account if it is missing. It reports
// whether an account was created.
func EnsureDirector(ctx context.Context, store UserEnsurer, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, errors.New("director username and password must be set")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	u := &models.User{
		Username:       username,
		HashedPassword: hash,
		Role:           models.RoleDirector,
	}
	u.FullName.String, u.FullName.Valid = "Director", true
	return store.EnsureUser(ctx, u)
}
