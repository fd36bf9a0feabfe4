package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/smtp"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/CrowderSoup/kanban/config"
	"github.com/CrowderSoup/kanban/database"
)

var (
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrEmptyDisplayName   = errors.New("display name cannot be empty")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidLink        = errors.New("invalid or expired token")
	ErrInvalidToken       = errors.New("invalid token")
	ErrPasswordAccount    = errors.New("account uses password login")
)

const minPasswordLength = 8

// UserStore is the account storage the auth service needs.
type UserStore interface {
	CreateUser(ctx context.Context, email, displayName, passwordHash string) (*database.User, error)
	GetUserByEmail(ctx context.Context, email string) (*database.User, error)
	FindOrCreateUser(ctx context.Context, email string) (*database.User, error)
}

// Identity is what a verified session token says about its holder.
type Identity struct {
	UID   string
	Email string
}

// Claims are the JWT claims issued for a session. Subject is the user's uid.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type magicToken struct {
	email   string
	expires time.Time
}

type AuthService struct {
	users      UserStore
	mu         sync.Mutex
	tokens     map[string]magicToken // Map of token -> email
	jwtSecret  []byte
	tokenTTL   time.Duration
	linkTTL    time.Duration
	exposeLink bool
	smtpConfig config.SMTPConfig
	now        func() time.Time
}

func NewAuthService(users UserStore, authCfg config.AuthConfig, smtpCfg config.SMTPConfig) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     make(map[string]magicToken),
		jwtSecret:  []byte(authCfg.JWTSecret),
		tokenTTL:   authCfg.TokenTTL,
		linkTTL:    authCfg.MagicLinkTTL,
		exposeLink: authCfg.ExposeMagicLink,
		smtpConfig: smtpCfg,
		now:        time.Now,
	}
}

// GenerateMagicLink creates a one-time token and email magic link
func (s *AuthService) GenerateMagicLink(email string, baseURL string) (string, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return "", ErrInvalidEmail
	}

	token, err := generateSecureToken(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.mu.Lock()
	s.pruneLocked()
	s.tokens[token] = magicToken{email: email, expires: s.now().Add(s.linkTTL)}
	s.mu.Unlock()

	magicLink := fmt.Sprintf("%s/api/auth/magic-link?token=%s", baseURL, token)

	if s.smtpConfig.Host != "" {
		if err := s.sendMagicLinkEmail(email, magicLink); err != nil {
			slog.Warn("failed to send magic link email", "email", email, "error", err)
		}
	}

	return magicLink, nil
}

// ExposesMagicLinks reports whether API responses may carry the login link.
func (s *AuthService) ExposesMagicLinks() bool {
	return s.exposeLink
}

// VerifyMagicLinkToken consumes a one-time token and returns its user,
// creating the account on first sign-in. Password accounts cannot sign in
// through a link.
func (s *AuthService) VerifyMagicLinkToken(ctx context.Context, token string) (*database.User, error) {
	s.mu.Lock()
	entry, exists := s.tokens[token]
	delete(s.tokens, token)
	s.mu.Unlock()

	if !exists || s.now().After(entry.expires) {
		return nil, ErrInvalidLink
	}

	user, err := s.users.FindOrCreateUser(ctx, entry.email)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	if user.PasswordHash != "" {
		return nil, ErrPasswordAccount
	}
	return user, nil
}

func (s *AuthService) pruneLocked() {
	now := s.now()
	for token, entry := range s.tokens {
		if now.After(entry.expires) {
			delete(s.tokens, token)
		}
	}
}

// SignUpRequest carries the password sign-up form.
type SignUpRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	DisplayName     string `json:"displayName"`
}

func (r SignUpRequest) Validate() error {
	var errs []error
	if _, err := mail.ParseAddress(r.Email); err != nil {
		errs = append(errs, ErrInvalidEmail)
	}
	if r.DisplayName == "" {
		errs = append(errs, ErrEmptyDisplayName)
	}
	if len(r.Password) < minPasswordLength {
		errs = append(errs, ErrWeakPassword)
	}
	if r.Password != r.ConfirmPassword {
		errs = append(errs, ErrPasswordMismatch)
	}
	return errors.Join(errs...)
}

// SignUp creates a password account.
func (s *AuthService) SignUp(ctx context.Context, req SignUpRequest) (*database.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, req.Email, req.DisplayName, string(hash))
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks an email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*database.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, database.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// CreateJWT generates a session token for a user
func (s *AuthService) CreateJWT(user *database.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// VerifyJWT verifies a session token and returns its identity
func (s *AuthService) VerifyJWT(tokenString string) (Identity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UID: claims.Subject, Email: claims.Email}, nil
}

// Helper to generate a secure random token
func generateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Helper to send a magic link email
func (s *AuthService) sendMagicLinkEmail(to, magicLink string) error {
	if s.smtpConfig.Host == "" || s.smtpConfig.Port == "" ||
		s.smtpConfig.Username == "" || s.smtpConfig.Password == "" {
		return errors.New("SMTP not fully configured")
	}

	auth := smtp.PlainAuth("", s.smtpConfig.Username, s.smtpConfig.Password, s.smtpConfig.Host)

	from := s.smtpConfig.From
	if from == "" {
		from = s.smtpConfig.Username
	}

	subject := "Your Kanban login link"
	body := fmt.Sprintf("Click the link below to log in to your boards:\n\n%s\n\nIf you didn't request this link, you can safely ignore this email.", magicLink)
	message := fmt.Sprintf("From: %s\nTo: %s\nSubject: %s\n\n%s", from, to, subject, body)

	addr := fmt.Sprintf("%s:%s", s.smtpConfig.Host, s.smtpConfig.Port)
	if err := smtp.SendMail(addr, auth, from, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
