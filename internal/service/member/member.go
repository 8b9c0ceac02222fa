package member

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nkiryanov/quizledger/internal/apperrors"
	"github.com/nkiryanov/quizledger/internal/logger"
	"github.com/nkiryanov/quizledger/internal/models"
	"github.com/nkiryanov/quizledger/internal/repository"
	"github.com/nkiryanov/quizledger/internal/service/auth"
)

const (
	referralCodeBytes    = 4
	referralCodeAttempts = 5
)

type referralCrediter interface {
	CreditReferral(ctx context.Context, newMemberID uuid.UUID, code string) (uuid.UUID, error)
}

type Config struct {
	// Hasher to use on registration and login
	// If not set than auth.DefaultHasher is used
	Hasher auth.PasswordHasher

	// Members registered with these logins get admin role
	AdminLogins []string
}

type MemberService struct {
	hasher    auth.PasswordHasher
	admins    map[string]struct{}
	storage   repository.Storage
	referrals referralCrediter
	logger    logger.Logger
}

func NewService(cfg Config, storage repository.Storage, referrals referralCrediter, l logger.Logger) *MemberService {
	hasher := cfg.Hasher
	if hasher == nil {
		hasher = auth.DefaultHasher
	}

	admins := make(map[string]struct{}, len(cfg.AdminLogins))
	for _, login := range cfg.AdminLogins {
		if login = strings.TrimSpace(login); login != "" {
			admins[login] = struct{}{}
		}
	}

	return &MemberService{
		hasher:    hasher,
		admins:    admins,
		storage:   storage,
		referrals: referrals,
		logger:    l,
	}
}

// Create member with own referral code
//
// Referral code of another member is stored as pending and credited right away.
// Failed referral crediting never fails the registration: the code stays pending and is retried later.
func (s *MemberService) CreateMember(ctx context.Context, username string, password string, referralCode string) (models.Member, error) {
	var member models.Member

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return member, fmt.Errorf("can't use this as password, Err: %w", err)
	}

	params := repository.CreateMemberParams{
		Username:            username,
		HashedPassword:      hash,
		Role:                models.RoleMember,
		PendingReferralCode: strings.TrimSpace(referralCode),
	}
	if _, ok := s.admins[username]; ok {
		params.Role = models.RoleAdmin
	}

	for range referralCodeAttempts {
		params.ReferralCode, err = newReferralCode()
		if err != nil {
			return member, err
		}

		// Savepoint keeps outer transaction usable after unique violation
		err = s.storage.InTx(ctx, func(st repository.Storage) error {
			member, err = st.Member().CreateMember(ctx, params)
			return err
		})
		if !errors.Is(err, apperrors.ErrReferralCodeTaken) {
			break
		}
	}
	if err != nil {
		return member, fmt.Errorf("can't create member. Err: %w", err)
	}

	if params.PendingReferralCode == "" {
		return member, nil
	}

	_, err = s.referrals.CreditReferral(ctx, member.ID, params.PendingReferralCode)
	switch {
	case err == nil:
	case apperrors.KindOf(err).Retryable():
		s.logger.Warn("Referral crediting failed, will be retried", "member_id", member.ID, "error", err)
	default:
		s.logger.Info("Referral code not accepted", "member_id", member.ID, "error", err)
	}

	return s.GetMemberByID(ctx, member.ID)
}

// Return member if password matches
// Unknown username and wrong password are indistinguishable for caller
func (s *MemberService) Login(ctx context.Context, username string, password string) (models.Member, error) {
	member, err := s.storage.Member().GetMemberByUsername(ctx, username)
	switch {
	case errors.Is(err, apperrors.ErrMemberNotFound):
		return models.Member{}, apperrors.ErrUnauthorized
	case err != nil:
		return models.Member{}, err
	}

	if err := s.hasher.Compare(member.HashedPassword, password); err != nil {
		return models.Member{}, apperrors.ErrUnauthorized
	}

	return member, nil
}

func (s *MemberService) GetMemberByID(ctx context.Context, memberID uuid.UUID) (models.Member, error) {
	return s.storage.Member().GetMemberByID(ctx, memberID, false)
}

// Random code of upper hex letters
func newReferralCode() (string, error) {
	b := make([]byte, referralCodeBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("error while generate referral code. Err: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}
