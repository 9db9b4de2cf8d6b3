// Package auth is a local mock of an identity provider. Users live in a
// storage slot, passwords are bcrypt hashes and sessions are signed JWTs.
// It is a stand-in for a real provider, not a security boundary.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/log"
	"fintrack/internal/storage"
)

const issuer = "fintrack"

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrEmptyName          = errors.New("name is required")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrUnknownUser        = errors.New("unknown user")
)

const minPasswordLength = 6

// User is the stored account. The hash never leaves the package in JSON
// responses; use Public.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

type PublicUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

type Session struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	User      PublicUser `json:"user"`
}

type Config struct {
	Secret   []byte
	TokenTTL time.Duration
	// Latency delays Register and Login to mimic a remote provider.
	Latency    time.Duration
	BcryptCost int
}

type Service struct {
	kv     storage.KV
	cfg    Config
	logger *log.Logger
	now    func() time.Time
	newID  func() string

	mu sync.Mutex
}

func NewService(kv storage.KV, cfg Config, logger *log.Logger) (*Service, error) {
	if len(cfg.Secret) == 0 {
		cfg.Secret = make([]byte, 32)
		if _, err := rand.Read(cfg.Secret); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Service{
		kv:     kv,
		cfg:    cfg,
		logger: logger.WithComponent(log.ComponentAuth),
		now:    time.Now,
		newID:  uuid.NewString,
	}, nil
}

// Register creates an account. It does not start a session.
func (s *Service) Register(ctx context.Context, name, email, password string) (User, error) {
	if err := s.wait(ctx); err != nil {
		return User{}, err
	}
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	switch {
	case name == "":
		return User{}, ErrEmptyName
	case !strings.Contains(email, "@"):
		return User{}, ErrInvalidEmail
	case len(password) < minPasswordLength:
		return User{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load(ctx)
	if err != nil {
		return User{}, err
	}
	// exact, case-sensitive match
	if slices.ContainsFunc(users, func(u User) bool { return u.Email == email }) {
		return User{}, ErrEmailTaken
	}

	u := User{ID: s.newID(), Name: name, Email: email, PasswordHash: string(hash), CreatedAt: s.now()}
	if err := s.save(ctx, append(users, u)); err != nil {
		return User{}, err
	}
	s.logger.InfoContext(ctx, "Registered user", log.FieldUserID, u.ID)
	return u, nil
}

// Login checks the credentials and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	if err := s.wait(ctx); err != nil {
		return Session{}, err
	}

	s.mu.Lock()
	users, err := s.load(ctx)
	s.mu.Unlock()
	if err != nil {
		return Session{}, err
	}

	i := slices.IndexFunc(users, func(u User) bool { return u.Email == strings.TrimSpace(email) })
	if i < 0 {
		return Session{}, ErrInvalidCredentials
	}
	u := users[i]
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.logger.InfoContext(ctx, "Login rejected", log.FieldUserID, u.ID)
		return Session{}, ErrInvalidCredentials
	}

	now := s.now()
	expires := now.Add(s.cfg.TokenTTL)
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   u.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		ID:        s.newID(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}
	return Session{Token: token, ExpiresAt: expires, User: u.Public()}, nil
}

// Verify returns the user ID carried by a valid token.
func (s *Service) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.cfg.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// User returns the account with the given ID.
func (s *Service) User(ctx context.Context, id string) (User, error) {
	s.mu.Lock()
	users, err := s.load(ctx)
	s.mu.Unlock()
	if err != nil {
		return User{}, err
	}
	i := slices.IndexFunc(users, func(u User) bool { return u.ID == id })
	if i < 0 {
		return User{}, ErrUnknownUser
	}
	return users[i], nil
}

func (s *Service) wait(ctx context.Context) error {
	if s.cfg.Latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.cfg.Latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Service) load(ctx context.Context) ([]User, error) {
	raw, ok, err := s.kv.Load(ctx, storage.KeyUsers)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var users []User
	if err := json.Unmarshal(raw, &users); err != nil {
		s.logger.WarnContext(ctx, "Discarding malformed users snapshot", log.FieldError, err)
		return nil, nil
	}
	return users, nil
}

func (s *Service) save(ctx context.Context, users []User) error {
	raw, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}
	if err := s.kv.Save(ctx, storage.KeyUsers, raw); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}

type userIDKey struct{}

// WithUserID returns a copy of ctx carrying the signed-in user's ID.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserIDFrom returns the user ID stored by WithUserID, or "".
func UserIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}
