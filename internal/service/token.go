package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/memberbeat/admin/internal/domain"
	"github.com/memberbeat/admin/internal/repository"
)

// TokenService handles payment tokens.
type TokenService struct {
	tokens   repository.TokenStore
	validate *validator.Validate
}

// NewTokenService creates a new TokenService.
func NewTokenService(tokens repository.TokenStore) *TokenService {
	return &TokenService{
		tokens:   tokens,
		validate: validator.New(),
	}
}

func (s *TokenService) List(ctx context.Context) ([]*domain.Token, error) {
	tokens, err := s.tokens.List(ctx)
	if err != nil {
		return nil, domain.ErrInternal("failed to list tokens", err)
	}
	if tokens == nil {
		tokens = []*domain.Token{}
	}
	return tokens, nil
}

func (s *TokenService) Get(ctx context.Context, id string) (*domain.Token, error) {
	if !domain.IsValidID(id) {
		return nil, domain.ErrNotFound(msgTokenNotFound)
	}
	token, err := s.tokens.FindByID(ctx, id)
	if err != nil {
		return nil, domain.ErrInternal("failed to find token", err)
	}
	if token == nil {
		return nil, domain.ErrNotFound(msgTokenNotFound)
	}
	return token, nil
}

func (s *TokenService) check(req *domain.TokenRequest) error {
	req.Network = strings.TrimSpace(req.Network)
	req.ContractAddress = strings.TrimSpace(req.ContractAddress)
	req.PriceFeedAddress = strings.TrimSpace(req.PriceFeedAddress)
	if err := s.validate.Struct(req); err != nil {
		return domain.ErrValidation(msgProvideAllFields)
	}
	return nil
}

func (s *TokenService) Create(ctx context.Context, req *domain.TokenRequest) (*domain.Token, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}

	now := time.Now()
	token := &domain.Token{ID: domain.NewID(), CreatedAt: now, UpdatedAt: now}
	req.ApplyTo(token)
	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, domain.ErrInternal("failed to create token", err)
	}
	return token, nil
}

func (s *TokenService) Update(ctx context.Context, id string, req *domain.TokenRequest) (*domain.Token, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	token, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	req.ApplyTo(token)
	token.UpdatedAt = time.Now()
	if err := s.tokens.Update(ctx, token); err != nil {
		return nil, domain.ErrInternal("failed to update token", err)
	}
	return token, nil
}

// Delete removes a token. Billing plans that still reference it keep the id
// and read back with an empty token until they are edited.
func (s *TokenService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.tokens.Delete(ctx, id); err != nil {
		return domain.ErrInternal("failed to delete token", err)
	}
	return nil
}
