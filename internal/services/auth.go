package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gurwinder-gg/LootBazaar/internal/models"
	"github.com/gurwinder-gg/LootBazaar/internal/p2p"
	"github.com/gurwinder-gg/LootBazaar/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

const (
	challengeTTL      = 5 * time.Minute
	challengeAudience = "lootbazaar-wallet-challenge"
)

// Account errors
var (
	ErrAccountExists      = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotFound    = errors.New("account not found")
	ErrWalletRequired     = errors.New("wallet is required")
	ErrInvalidWallet      = errors.New("invalid wallet address")
	ErrInvalidWalletProof = errors.New("wallet ownership not proven")
)

// AccountStore persists accounts
type AccountStore interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	GetAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// AuthService handles authentication operations
type AuthService struct {
	store AccountStore
	cost  int
	// challengeKey signs wallet challenges. It is derived from the session secret
	// so a challenge never verifies as a session token.
	challengeKey []byte
	clock        clock.Clock
}

// NewAuthService creates a new auth service. secret is the JWT session secret.
func NewAuthService(store AccountStore, secret string) *AuthService {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("lootbazaar wallet challenge"))
	return &AuthService{
		store:        store,
		cost:         bcrypt.DefaultCost,
		challengeKey: mac.Sum(nil),
		clock:        clock.New(),
	}
}

// ChallengeRequest asks for a wallet ownership challenge
type ChallengeRequest struct {
	Wallet string `json:"wallet" binding:"required"`
}

// ChallengeResponse carries the challenge the wallet key must sign
type ChallengeResponse struct {
	Challenge string    `json:"challenge"`
	ExpiresAt time.Time `json:"expires_at"`
}

type challengeClaims struct {
	Wallet string `json:"wallet"`
	jwt.RegisteredClaims
}

// RegisterRequest represents a registration request. Signature is the base64 encoded
// signature of Challenge by the wallet key.
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Wallet    string `json:"wallet" binding:"required"`
	Challenge string `json:"challenge" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Wallet    string `json:"wallet"`
	Token     string `json:"token"`
}

// IssueChallenge returns a short-lived challenge for wallet to sign
func (s *AuthService) IssueChallenge(wallet string) (*ChallengeResponse, error) {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return nil, ErrWalletRequired
	}
	if _, err := p2p.WalletPublicKey(wallet); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWallet, err)
	}

	now := s.clock.Now()
	expiresAt := now.Add(challengeTTL)
	claims := challengeClaims{
		Wallet: wallet,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Audience:  jwt.ClaimStrings{challengeAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	challenge, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.challengeKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign challenge: %w", err)
	}
	return &ChallengeResponse{Challenge: challenge, ExpiresAt: expiresAt.UTC()}, nil
}

// verifyWalletProof checks that challenge was issued for wallet and is unexpired,
// and that signature is the wallet key's signature over it.
func (s *AuthService) verifyWalletProof(wallet, challenge, signature string) error {
	keyFunc := func(*jwt.Token) (interface{}, error) { return s.challengeKey, nil }
	var claims challengeClaims
	_, err := jwt.ParseWithClaims(challenge, &claims, keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(challengeAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidWalletProof, err)
	}
	if claims.Wallet != wallet {
		return fmt.Errorf("%w: challenge was issued for another wallet", ErrInvalidWalletProof)
	}

	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: signature is not base64", ErrInvalidWalletProof)
	}
	if err := p2p.VerifyWalletSignature(wallet, []byte(challenge), sig); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidWalletProof, err)
	}
	return nil
}

// Register creates a new account bound to a wallet. The caller proves it holds the
// wallet key by signing a challenge from IssueChallenge.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*models.Account, error) {
	wallet := strings.TrimSpace(req.Wallet)
	if wallet == "" {
		return nil, ErrWalletRequired
	}
	if err := s.verifyWalletProof(wallet, req.Challenge, req.Signature); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &models.Account{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Wallet:       wallet,
		PasswordHash: string(hash),
	}

	if err := s.store.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrAccountExists
		}
		return nil, err
	}

	return account, nil
}

// Login authenticates an account
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*models.Account, error) {
	account, err := s.store.GetAccountByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return account, nil
}

// GetAccount retrieves an account by ID
func (s *AuthService) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account, err := s.store.GetAccountByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}
