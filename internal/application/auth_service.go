package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/scopeguard/internal/domain/apperror"
	"github.com/oksasatya/scopeguard/internal/domain/entity"
	repo "github.com/oksasatya/scopeguard/internal/domain/repository"
	"github.com/oksasatya/scopeguard/pkg/helpers"
)

const TokenTypeBearer = "bearer"

// sideEffectTimeout bounds each background side effect of a registration or
// activation change.
const sideEffectTimeout = 3 * time.Second

// EventPublisher receives domain events. *helpers.RabbitPublisher satisfies it.
type EventPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// UserDirectory is a searchable copy of user profiles.
type UserDirectory interface {
	IndexUser(ctx context.Context, p *entity.UserProfile) error
	SearchUsers(ctx context.Context, q string, size int) ([]entity.UserProfile, error)
}

type RegisterInput struct {
	FullName string
	Email    string
	Password string
}

type TokenResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Scopes      []string  `json:"scopes"`
}

type AuthService struct {
	Store         repo.CredentialStore
	Hasher        *helpers.PasswordHasher
	Tokens        *helpers.TokenManager
	Logger        *logrus.Logger
	DefaultScopes []string
	Events        EventPublisher
	Directory     UserDirectory
	// RequireActivation registers new users as inactive until an
	// administrator activates them.
	RequireActivation bool

	now     func() time.Time
	pending sync.WaitGroup
}

type Option func(*AuthService)

func WithEvents(p EventPublisher) Option { return func(s *AuthService) { s.Events = p } }

func WithDirectory(d UserDirectory) Option { return func(s *AuthService) { s.Directory = d } }

func WithClock(now func() time.Time) Option { return func(s *AuthService) { s.now = now } }

func WithActivationRequired(required bool) Option {
	return func(s *AuthService) { s.RequireActivation = required }
}

func NewAuthService(store repo.CredentialStore, hasher *helpers.PasswordHasher, tokens *helpers.TokenManager, logger *logrus.Logger, defaultScopes []string, opts ...Option) *AuthService {
	if logger == nil {
		logger = helpers.NewDiscardLogger()
	}
	s := &AuthService{
		Store:         store,
		Hasher:        hasher,
		Tokens:        tokens,
		Logger:        logger,
		DefaultScopes: defaultScopes,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeEmail is applied to every email crossing the service boundary.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HashPassword hashes plain on a bounded hashing slot.
func (s *AuthService) HashPassword(ctx context.Context, plain string) (string, error) {
	hash, err := s.Hasher.Hash(ctx, plain)
	switch {
	case err == nil:
		return hash, nil
	case errors.Is(err, helpers.ErrEmptyPassword), errors.Is(err, bcrypt.ErrPasswordTooLong):
		return "", apperror.ErrValidation.WithReason(err.Error()).WithDetails(map[string]string{"password": err.Error()})
	default:
		return "", apperror.ErrInternal.WithReason("hash password: " + err.Error())
	}
}

// Register creates a user holding the default scopes. Uniqueness is decided
// by the store's insert alone.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*entity.UserProfile, error) {
	hash, err := s.HashPassword(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	u := &entity.User{
		Email:        NormalizeEmail(in.Email),
		FullName:     strings.TrimSpace(in.FullName),
		PasswordHash: hash,
		IsActive:     !s.RequireActivation,
	}
	if err := s.Store.Insert(ctx, u, s.DefaultScopes); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, apperror.ErrDuplicateUser.WithReason("email " + u.Email + " taken")
		}
		return nil, apperror.ErrInternal.WithReason("insert user: " + err.Error())
	}

	profile := u.Profile()
	s.background(ctx, profile, true)
	return profile, nil
}

// background runs best-effort side effects after the caller has its answer.
// Failures are logged only. Wait blocks until they finish.
func (s *AuthService) background(ctx context.Context, p *entity.UserProfile, registered bool) {
	if s.Events == nil && s.Directory == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	snapshot := *p
	occurred := s.now()

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		log := s.Logger.WithFields(logrus.Fields{"user_id": snapshot.ID, "email": snapshot.Email})

		if registered && s.Events != nil {
			c, cancel := context.WithTimeout(ctx, sideEffectTimeout)
			if err := s.Events.PublishJSON(c, entity.NewUserRegisteredEvent(&snapshot, occurred)); err != nil {
				log.WithError(err).Warn("publish user.registered failed")
			}
			cancel()
		}
		if s.Directory != nil {
			c, cancel := context.WithTimeout(ctx, sideEffectTimeout)
			if err := s.Directory.IndexUser(c, &snapshot); err != nil {
				log.WithError(err).Warn("index user failed")
			}
			cancel()
		}
	}()
}

// Wait blocks until in-flight side effects finish or ctx is done.
func (s *AuthService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Authenticate verifies email and password. Unknown email and wrong password
// fail with the same error after the same amount of bcrypt work.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	email = NormalizeEmail(email)

	u, err := s.Store.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, apperror.ErrInternal.WithReason("find user: " + err.Error())
		}
		if err := s.Hasher.CompareDummy(ctx, password); err != nil {
			return nil, apperror.ErrInternal.WithReason("compare: " + err.Error())
		}
		return nil, apperror.ErrAuthentication.WithReason("unknown email " + email)
	}

	ok, err := s.Hasher.Compare(ctx, u.PasswordHash, password)
	if err != nil {
		return nil, apperror.ErrInternal.WithReason("compare: " + err.Error())
	}
	if !ok {
		return nil, apperror.ErrAuthentication.WithReason("password mismatch for " + email)
	}
	// Checked after the hash comparison so an inactive account costs and
	// answers the same as a wrong password.
	if !u.IsActive {
		return nil, apperror.ErrAuthentication.WithReason("inactive account " + email)
	}
	return u, nil
}

// SetUserActive activates or deactivates userID. Tokens already issued stay
// valid until they expire.
func (s *AuthService) SetUserActive(ctx context.Context, userID string, active bool) (*entity.UserProfile, error) {
	u, err := s.Store.SetActive(ctx, userID, active)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperror.ErrNotFound.WithReason("user " + userID)
		}
		return nil, apperror.ErrInternal.WithReason("set active: " + err.Error())
	}
	scopes, err := s.Store.ScopesForUser(ctx, u.ID)
	if err != nil {
		return nil, apperror.ErrInternal.WithReason("load scopes: " + err.Error())
	}
	u.Scopes = scopes

	profile := u.Profile()
	s.Logger.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email, "active": active}).Info("user activation changed")
	s.background(ctx, profile, false)
	return profile, nil
}

// IssueToken signs an access token for subject with a snapshot of scopes.
func (s *AuthService) IssueToken(subject, userID string, scopes []string) (helpers.AccessToken, error) {
	tok, err := s.Tokens.Issue(subject, userID, scopes)
	if err != nil {
		return helpers.AccessToken{}, apperror.ErrInternal.WithReason("sign token: " + err.Error())
	}
	return tok, nil
}

// Login authenticates and issues a bearer token carrying the user's current
// scopes. Later grant changes do not affect tokens already issued.
func (s *AuthService) Login(ctx context.Context, email, password string) (TokenResult, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return TokenResult{}, err
	}
	scopes, err := s.Store.ScopesForUser(ctx, u.ID)
	if err != nil {
		return TokenResult{}, apperror.ErrInternal.WithReason("load scopes: " + err.Error())
	}
	tok, err := s.IssueToken(u.Email, u.ID, scopes)
	if err != nil {
		return TokenResult{}, err
	}
	return TokenResult{
		AccessToken: tok.Token,
		TokenType:   TokenTypeBearer,
		ExpiresAt:   tok.ExpiresAt,
		Scopes:      tok.Scopes,
	}, nil
}

// VerifyToken checks signature, expiry and claims without touching the store.
func (s *AuthService) VerifyToken(token string) (*helpers.Claims, error) {
	claims, err := s.Tokens.Verify(token)
	if err != nil {
		reason := err.Error()
		var te *helpers.TokenError
		if errors.As(err, &te) {
			reason = te.Reason + ": " + te.Err.Error()
		}
		return nil, apperror.ErrAuthentication.WithReason(reason)
	}
	return claims, nil
}

// RequireScopes fails unless claims hold every scope in required.
func (s *AuthService) RequireScopes(claims *helpers.Claims, required ...string) error {
	missing := entity.NewScopeSet(claims.Scopes...).Missing(entity.NewScopeSet(required...))
	if len(missing) > 0 {
		return apperror.ErrAuthorization.WithReason("missing scopes: " + strings.Join(missing, ","))
	}
	return nil
}

// SearchUsers queries the user directory. Without one it returns no results.
func (s *AuthService) SearchUsers(ctx context.Context, q string, size int) ([]entity.UserProfile, error) {
	if s.Directory == nil {
		return []entity.UserProfile{}, nil
	}
	users, err := s.Directory.SearchUsers(ctx, strings.TrimSpace(q), size)
	if err != nil {
		return nil, apperror.ErrInternal.WithReason("search users: " + err.Error())
	}
	return users, nil
}
