// Package account orchestrates signup, login, federated login, password
// reset and score submission on top of the store, the token service and the
// reset manager.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/tazhibayda/quiz-auth-service/internal/domain"
	"github.com/tazhibayda/quiz-auth-service/internal/helper"
	"github.com/tazhibayda/quiz-auth-service/internal/log"
	"github.com/tazhibayda/quiz-auth-service/internal/metrics"
	"github.com/tazhibayda/quiz-auth-service/internal/notify"
	"github.com/tazhibayda/quiz-auth-service/internal/oauth"
	"github.com/tazhibayda/quiz-auth-service/internal/repo"
	"github.com/tazhibayda/quiz-auth-service/internal/security"
)

type Store interface {
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserByID(ctx context.Context, id string) (*domain.User, error)
	CreateUser(ctx context.Context, u *domain.User) error
	LinkGoogleID(ctx context.Context, id primitive.ObjectID, googleID string) (*domain.User, error)
	RecordScore(ctx context.Context, id primitive.ObjectID, e domain.ScoreEntry) (*domain.User, error)
}

type Tokens interface {
	Issue(uid, email string) (string, error)
}

type Resets interface {
	Issue(ctx context.Context, u *domain.User) (string, error)
	Redeem(ctx context.Context, token, passwordHash string) (*domain.User, error)
	TTL() time.Duration
}

// Session is the result of a successful signup or login.
type Session struct {
	Token string
	User  *domain.User
}

// Outcome tells how FederatedLogin resolved the identity to a local user.
type Outcome int

const (
	Created Outcome = iota
	LinkedExistingByEmail
	FoundExisting
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case LinkedExistingByEmail:
		return "linked"
	case FoundExisting:
		return "found"
	}
	return "unknown"
}

type Service struct {
	store       Store
	tokens      Tokens
	resets      Resets
	hasher      security.Hasher
	mail        notify.Dispatcher
	frontendURL string
	log         *zap.Logger
	policy      *bluemonday.Policy
	now         func() time.Time
}

type Deps struct {
	Store       Store
	Tokens      Tokens
	Resets      Resets
	Hasher      security.Hasher
	Mail        notify.Dispatcher
	FrontendURL string
	Log         *zap.Logger
}

func NewService(d Deps) *Service {
	l := d.Log
	if l == nil {
		l = zap.NewNop()
	}
	return &Service{
		store:       d.Store,
		tokens:      d.Tokens,
		resets:      d.Resets,
		hasher:      d.Hasher,
		mail:        d.Mail,
		frontendURL: strings.TrimRight(d.FrontendURL, "/"),
		log:         l,
		policy:      bluemonday.StrictPolicy(),
		now:         time.Now,
	}
}

// cleanName strips markup from a user supplied display name.
func (s *Service) cleanName(name string) string {
	return strings.TrimSpace(s.policy.Sanitize(strings.TrimSpace(name)))
}

func (s *Service) Signup(ctx context.Context, email, password, username string) (*Session, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.Invalid("Email and password required")
	}
	existing, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrAlreadyRegistered
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	name := s.cleanName(username)
	if name == "" {
		name = domain.DefaultUsername(email)
	}
	u := &domain.User{Email: email, Username: name, PasswordHash: hash, History: []domain.ScoreEntry{}}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateKey) {
			return nil, domain.ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	metrics.Signups.Inc()

	tok, err := s.tokens.Issue(u.ID.Hex(), u.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	if msg, err := notify.WelcomeEmail(u.Email, u.Username, s.frontendURL); err != nil {
		log.WithDD(ctx, s.log).Error("render welcome mail", zap.Error(err))
	} else {
		msg.RequestID = helper.RequestID(ctx)
		s.mail.Dispatch(msg)
	}
	return &Session{Token: tok, User: u.Sanitized()}, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.Invalid("Email and password required")
	}
	u, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		metrics.Logins.WithLabelValues("password", "not_found").Inc()
		return nil, domain.ErrNotFound
	}
	if !u.HasPassword() {
		metrics.Logins.WithLabelValues("password", "federated_only").Inc()
		return nil, domain.ErrFederatedOnly
	}
	if !s.hasher.Check(u.PasswordHash, password) {
		metrics.Logins.WithLabelValues("password", "bad_password").Inc()
		return nil, domain.ErrInvalidCredentials
	}
	tok, err := s.tokens.Issue(u.ID.Hex(), u.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	metrics.Logins.WithLabelValues("password", "ok").Inc()
	return &Session{Token: tok, User: u.Sanitized()}, nil
}

// FederatedLogin finds or creates the local user for a verified provider
// identity and issues a bearer token for it.
func (s *Service) FederatedLogin(ctx context.Context, id oauth.Identity) (*Session, Outcome, error) {
	email := domain.NormalizeEmail(id.Email)
	if email == "" || id.ProviderID == "" {
		return nil, 0, domain.Invalid("No email returned")
	}
	u, outcome, err := s.resolveFederated(ctx, email, id)
	if err != nil {
		metrics.Logins.WithLabelValues("google", "error").Inc()
		return nil, 0, err
	}
	tok, err := s.tokens.Issue(u.ID.Hex(), u.Email)
	if err != nil {
		return nil, 0, fmt.Errorf("issue token: %w", err)
	}
	metrics.Logins.WithLabelValues("google", outcome.String()).Inc()
	return &Session{Token: tok, User: u.Sanitized()}, outcome, nil
}

func (s *Service) resolveFederated(ctx context.Context, email string, id oauth.Identity) (*domain.User, Outcome, error) {
	u, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, 0, fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		name := s.cleanName(id.DisplayName)
		if name == "" {
			name = domain.DefaultUsername(email)
		}
		u = &domain.User{Email: email, Username: name, GoogleID: id.ProviderID, History: []domain.ScoreEntry{}}
		err := s.store.CreateUser(ctx, u)
		if err == nil {
			return u, Created, nil
		}
		if !errors.Is(err, repo.ErrDuplicateKey) {
			return nil, 0, fmt.Errorf("create user: %w", err)
		}
		// lost a race with a concurrent signup for the same email
		if u, err = s.store.FindUserByEmail(ctx, email); err != nil {
			return nil, 0, fmt.Errorf("find user: %w", err)
		}
		if u == nil {
			return nil, 0, errors.New("user vanished after duplicate key")
		}
	}
	if u.GoogleID != "" {
		return u, FoundExisting, nil
	}
	linked, err := s.store.LinkGoogleID(ctx, u.ID, id.ProviderID)
	if err != nil {
		return nil, 0, fmt.Errorf("link google id: %w", err)
	}
	if linked != nil {
		return linked, LinkedExistingByEmail, nil
	}
	// a concurrent login linked it first
	if u, err = s.store.FindUserByID(ctx, u.ID.Hex()); err != nil {
		return nil, 0, fmt.Errorf("find user: %w", err)
	}
	if u == nil || u.GoogleID == "" {
		return nil, 0, errors.New("google link did not apply")
	}
	return u, FoundExisting, nil
}

// ForgotPassword issues a reset token and mails the link. It returns once
// the token is stored; mail delivery happens in the background.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.Invalid("Email required")
	}
	u, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return domain.ErrNotFound
	}
	tok, err := s.resets.Issue(ctx, u)
	if err != nil {
		return err
	}
	link := s.ResetLink(tok)
	msg, err := notify.ResetEmail(u.Email, u.Username, link, s.resets.TTL())
	if err != nil {
		log.WithDD(ctx, s.log).Error("render reset mail", zap.Error(err))
		return nil
	}
	msg.RequestID = helper.RequestID(ctx)
	s.mail.Dispatch(msg)
	return nil
}

func (s *Service) ResetLink(token string) string {
	return s.frontendURL + "/reset/" + token
}

func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" || password == "" {
		return domain.Invalid("Token and password required")
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = s.resets.Redeem(ctx, token, hash)
	return err
}

// UpdateScore raises the best score of the tier when beaten and appends the
// raw submission to the history.
func (s *Service) UpdateScore(ctx context.Context, u *domain.User, difficulty string, score int, label string) (*domain.User, error) {
	d, ok := domain.ParseDifficulty(difficulty)
	if !ok {
		return nil, domain.ErrInvalidDifficulty
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = string(d)
	}
	e := domain.ScoreEntry{Difficulty: d, Value: score, Label: label, CreatedAt: s.now().UTC()}
	updated, err := s.store.RecordScore(ctx, u.ID, e)
	if err != nil {
		return nil, fmt.Errorf("record score: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrNotFound
	}
	return updated.Sanitized(), nil
}

func (s *Service) Profile(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.store.FindUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return nil, domain.ErrNotFound
	}
	return u.Sanitized(), nil
}
