package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"smartpark/backend/services/booking-service/internal/clock"
	"smartpark/backend/services/booking-service/internal/models"
	"smartpark/backend/services/booking-service/internal/password"
	"smartpark/backend/services/booking-service/internal/repository"
	"smartpark/backend/services/booking-service/internal/token"
)

// AuthResult carries the signed-in user and token, or why sign-in failed.
type AuthResult struct {
	User    *models.User `json:"user,omitempty"`
	Token   string       `json:"token,omitempty"`
	Failure *Failure     `json:"failure,omitempty"`
}

// AuthService contains registration/login logic.
type AuthService struct {
	store     repository.Store
	hasher    password.Hasher
	tokenizer *token.Service
	clock     clock.Clock
	logger    *zap.Logger
}

// NewAuthService builds AuthService.
func NewAuthService(store repository.Store, hasher password.Hasher, tokenizer *token.Service, clk clock.Clock, logger *zap.Logger) *AuthService {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{store: store, hasher: hasher, tokenizer: tokenizer, clock: clk, logger: logger}
}

// Register creates a user and signs them in.
func (s *AuthService) Register(ctx context.Context, name, email, phone, pass string) (AuthResult, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	switch {
	case name == "":
		return AuthResult{Failure: fail(CodeMissingField, "name is required")}, nil
	case email == "":
		return AuthResult{Failure: fail(CodeMissingField, "email is required")}, nil
	case pass == "":
		return AuthResult{Failure: fail(CodeMissingField, "password is required")}, nil
	}

	existing, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return AuthResult{}, fmt.Errorf("register: %w", err)
	}
	if existing != nil {
		return AuthResult{Failure: fail(CodeEmailInUse, "email %s is already registered", email)}, nil
	}

	hash, err := s.hasher.Hash(pass)
	if err != nil {
		return AuthResult{}, fmt.Errorf("register: %w", err)
	}

	user := &models.User{
		ID:           newID("U-"),
		Name:         name,
		Email:        email,
		Phone:        strings.TrimSpace(phone),
		PasswordHash: hash,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.store.SaveUser(ctx, user); err != nil {
		return AuthResult{}, fmt.Errorf("register: %w", err)
	}

	tok, err := s.tokenizer.Generate(user.ID, user.Email)
	if err != nil {
		return AuthResult{}, fmt.Errorf("register: %w", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("email", user.Email))
	return AuthResult{User: user, Token: tok}, nil
}

// Login authenticates a user and produces a JWT.
func (s *AuthService) Login(ctx context.Context, email, pass string) (AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	invalid := AuthResult{Failure: fail(CodeInvalidCredentials, "email or password is incorrect")}
	if email == "" || pass == "" {
		return invalid, nil
	}

	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return AuthResult{}, fmt.Errorf("login: %w", err)
	}
	if user == nil || user.PasswordHash == "" {
		return invalid, nil
	}
	if err := s.hasher.Compare(user.PasswordHash, pass); err != nil {
		s.logger.Warn("login rejected", zap.String("user_id", user.ID))
		return invalid, nil
	}

	tok, err := s.tokenizer.Generate(user.ID, user.Email)
	if err != nil {
		return AuthResult{}, fmt.Errorf("login: %w", err)
	}
	return AuthResult{User: user, Token: tok}, nil
}
