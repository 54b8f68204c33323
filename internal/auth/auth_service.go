package auth

import (
	"Extensible-Homework-Helper/internal/model"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var ErrMissingCredentials = errors.New("school, username and password are required")

// TokenIssuer is the part of the portal client the login flow needs.
type TokenIssuer interface {
	FindSchool(ctx context.Context, name string) (*model.SchoolInfo, error)
	IssueToken(ctx context.Context, username, schoolID, passwordDigest string) (*model.TokenResponse, error)
}

type AuthService struct {
	issuer TokenIssuer
	logger *zap.Logger
}

func NewAuthService(issuer TokenIssuer, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{issuer: issuer, logger: logger.Named("auth")}
}

// Login resolves the school by name and exchanges the credentials for a
// token. The returned token is never mutated afterwards.
func (s *AuthService) Login(ctx context.Context, cred model.Credentials) (*model.Token, error) {
	if cred.School == "" || cred.Username == "" || cred.Password == "" {
		return nil, ErrMissingCredentials
	}

	school, err := s.issuer.FindSchool(ctx, cred.School)
	if err != nil {
		return nil, fmt.Errorf("find school %q: %w", cred.School, err)
	}
	s.logger.Debug("school resolved", zap.String("id", school.ID.String()), zap.String("name", school.Name))

	resp, err := s.issuer.IssueToken(ctx, cred.Username, school.ID.String(), passwordDigest(cred.Password))
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	token := &model.Token{
		AccessToken:  resp.AccessToken,
		TokenType:    resp.TokenType,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
		Scope:        resp.Scope,
		JTI:          resp.JTI,
		User: model.UserInfo{
			ID:       resp.UserInfo.ID.String(),
			Username: resp.UserInfo.Username,
			FullName: resp.UserInfo.Name,
			Type:     int(resp.UserInfo.Type),
			School:   *school,
		},
	}
	s.logger.Info("logged in", zap.String("user", token.User.Username), zap.String("school", school.Name))
	return token, nil
}
