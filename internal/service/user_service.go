package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/google/uuid"
)

// UserService owns account data. Credential handling and token issuance
// live outside this process; callers arrive already authenticated.
type UserService struct {
	repo            repository.UserRepository
	logger          *slog.Logger
	defaultAddress  string
	startingBalance float64
}

func NewUserService(repo repository.UserRepository, logger *slog.Logger, defaultAddress string, startingBalance float64) *UserService {
	return &UserService{
		repo:            repo,
		logger:          logger,
		defaultAddress:  defaultAddress,
		startingBalance: startingBalance,
	}
}

func (s *UserService) Register(ctx context.Context, email, name string) (*domain.User, error) {
	user := &domain.User{
		ID:              uuid.NewString(),
		Email:           email,
		Name:            name,
		WalletBalance:   s.startingBalance,
		ShippingAddress: s.defaultAddress,
	}

	err := s.repo.Create(ctx, user)
	if errors.Is(err, repository.ErrEmailExists) {
		return nil, domain.ErrEmailTaken
	}
	if err != nil {
		return nil, domain.InternalWrap("failed to create user", err)
	}

	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, domain.InternalWrap("failed to load user", err)
	}

	return user, nil
}

// SetShippingAddress rejects the placeholder value; an address equal to
// it would read back as "not set" at checkout.
func (s *UserService) SetShippingAddress(ctx context.Context, id, address string) (*domain.User, error) {
	if address == "" || address == s.defaultAddress {
		return nil, domain.ErrInvalidAddress
	}

	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	user.ShippingAddress = address
	if errSave := s.repo.Save(ctx, user); errSave != nil {
		if errors.Is(errSave, repository.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.InternalWrap("failed to save user", errSave)
	}

	return user, nil
}

func (s *UserService) Deposit(ctx context.Context, id string, amount float64) (*domain.User, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	user, err := s.repo.Deposit(ctx, id, amount)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, domain.InternalWrap("failed to deposit", err)
	}

	return user, nil
}
