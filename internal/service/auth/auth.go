package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nkiryanov/quizledger/internal/apperrors"
	"github.com/nkiryanov/quizledger/internal/models"
)

const (
	defaultAccessHeaderName = "Authorization"
	defaultAccessAuthScheme = "Bearer"
)

type tokenManager interface {
	GeneratePair(ctx context.Context, member models.Member) (models.TokenPair, error)
	UseRefresh(ctx context.Context, refresh string) (models.RefreshToken, error)
	ParseAccess(ctx context.Context, access string) (uuid.UUID, error)
}

type memberService interface {
	CreateMember(ctx context.Context, username string, password string, referralCode string) (models.Member, error)
	Login(ctx context.Context, username string, password string) (models.Member, error)
	GetMemberByID(ctx context.Context, memberID uuid.UUID) (models.Member, error)
}

type Config struct {
	// Header to read access token from and its scheme
	// If not set than default is used
	AccessHeaderName string
	AccessAuthScheme string
}

type AuthService struct {
	accessHeaderName string
	accessAuthScheme string

	tokens  tokenManager
	members memberService
}

func NewService(cfg Config, tokens tokenManager, members memberService) (*AuthService, error) {
	if cfg.AccessHeaderName == "" {
		cfg.AccessHeaderName = defaultAccessHeaderName
	}
	if cfg.AccessAuthScheme == "" {
		cfg.AccessAuthScheme = defaultAccessAuthScheme
	}

	return &AuthService{
		accessHeaderName: cfg.AccessHeaderName,
		accessAuthScheme: cfg.AccessAuthScheme,
		tokens:           tokens,
		members:          members,
	}, nil
}

// Register member and issue token pair
// Referral code is optional: unknown codes don't block the registration
func (s *AuthService) Register(ctx context.Context, username string, password string, referralCode string) (models.TokenPair, error) {
	member, err := s.members.CreateMember(ctx, username, password, referralCode)
	if err != nil {
		return models.TokenPair{}, err
	}

	pair, err := s.tokens.GeneratePair(ctx, member)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	return pair, nil
}

func (s *AuthService) Login(ctx context.Context, username string, password string) (models.TokenPair, error) {
	member, err := s.members.Login(ctx, username, password)
	if err != nil {
		return models.TokenPair{}, err
	}

	pair, err := s.tokens.GeneratePair(ctx, member)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	return pair, nil
}

// Exchange refresh token for a new pair. Refresh token may be used once
func (s *AuthService) RefreshPair(ctx context.Context, refresh string) (models.TokenPair, error) {
	token, err := s.tokens.UseRefresh(ctx, refresh)
	if err != nil {
		return models.TokenPair{}, err
	}

	member, err := s.members.GetMemberByID(ctx, token.MemberID)
	if err != nil {
		return models.TokenPair{}, err
	}

	return s.tokens.GeneratePair(ctx, member)
}

// Return member the request access token issued for
// Any failure is apperrors.ErrUnauthorized unless storage failed
func (s *AuthService) Authenticate(ctx context.Context, r *http.Request) (models.Member, error) {
	header := r.Header.Get(s.accessHeaderName)
	scheme, access, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, s.accessAuthScheme) || access == "" {
		return models.Member{}, apperrors.ErrUnauthorized
	}

	memberID, err := s.tokens.ParseAccess(ctx, access)
	if err != nil {
		return models.Member{}, err
	}

	member, err := s.members.GetMemberByID(ctx, memberID)
	switch {
	case errors.Is(err, apperrors.ErrMemberNotFound):
		return member, apperrors.ErrUnauthorized
	default:
		return member, err
	}
}
