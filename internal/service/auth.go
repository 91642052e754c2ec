package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"github.com/styleguard/styleguard/internal/events"
	"github.com/styleguard/styleguard/internal/hash"
	"github.com/styleguard/styleguard/internal/logging"
	"github.com/styleguard/styleguard/internal/models"
	"github.com/styleguard/styleguard/internal/repo"
	"github.com/styleguard/styleguard/internal/tokens"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrWrongTokenKind     = errors.New("wrong token kind")
	ErrUnknownSubject     = errors.New("token subject does not exist")

	ErrAlreadyExists = errors.New("already exists")
	ErrEmailTaken    = fmt.Errorf("%w: email already registered", ErrAlreadyExists)
	ErrUsernameTaken = fmt.Errorf("%w: username already taken", ErrAlreadyExists)
)

type UserStore interface {
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	InsertUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id uint) (bool, error)
}

// UserUpdate holds the account fields to change; nil fields are left alone.
type UserUpdate struct {
	Email    *string
	Username *string
	Password *string
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event events.Event) error
}

type AuthService struct {
	Users      UserStore
	Tokens     *tokens.Service
	Events     EventPublisher
	BcryptCost int
}

func (s *AuthService) Register(ctx context.Context, email, username, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)
	if err := validateRegistration(email, username, password); err != nil {
		l.Warn("register_error", "status", 400, "reason", err.Error())
		return nil, err
	}

	if _, err := s.Users.FindUserByEmail(ctx, email); err == nil {
		l.Warn("register_error", "status", 409, "reason", "email already registered")
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		l.Error("register_error", "status", 500, "error", err)
		return nil, err
	}
	if _, err := s.Users.FindUserByUsername(ctx, username); err == nil {
		l.Warn("register_error", "status", 409, "reason", "username already taken")
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		l.Error("register_error", "status", 500, "error", err)
		return nil, err
	}

	pwHash, err := hash.HashPasswordCost(password, s.BcryptCost)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := &models.User{
		Email:        email,
		Username:     username,
		PasswordHash: pwHash,
	}
	if err := s.Users.InsertUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicateEntry) {
			l.Warn("register_error", "status", 409, "reason", "concurrent duplicate")
			return nil, ErrAlreadyExists
		}
		l.Error("register_error", "status", 500, "error", err)
		return nil, err
	}

	s.publish(ctx, user.ID, "user_registered", map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
	})
	l.Info("register_successful", "user_id", user.ID)
	return user, nil
}

func validateRegistration(email, username, password string) error {
	if email == "" || username == "" || password == "" {
		return fmt.Errorf("%w: email, username and password are required", ErrValidation)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	return nil
}

// Authenticate does not distinguish an unknown email from a wrong password.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.Users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (tokens.Pair, *models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			l.Warn("login_failed", "status", 401, "reason", "invalid email or password")
		} else {
			l.Error("login_failed", "status", 500, "error", err)
		}
		return tokens.Pair{}, nil, err
	}

	pair, err := s.Tokens.IssuePair(subjectOf(user))
	if err != nil {
		l.Error("login_failed", "status", 500, "error", err)
		return tokens.Pair{}, nil, err
	}

	s.publish(ctx, user.ID, "user_logged_in", map[string]any{"user_id": user.ID})
	l.Info("login_successful", "user_id", user.ID)
	return pair, user, nil
}

// Refresh issues a new pair for a valid refresh token. The presented token
// is not revoked and stays usable until it expires.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (tokens.Pair, *models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	user, err := s.ResolveRefreshUser(ctx, refreshToken)
	if err != nil {
		l.Warn("refresh_failed", "status", 401, "error", err)
		return tokens.Pair{}, nil, err
	}

	pair, err := s.Tokens.IssuePair(subjectOf(user))
	if err != nil {
		l.Error("refresh_failed", "status", 500, "error", err)
		return tokens.Pair{}, nil, err
	}
	l.Info("refresh_successful", "user_id", user.ID)
	return pair, user, nil
}

// UpdateUser applies upd to user. Issued tokens carry the user id and stay valid.
func (s *AuthService) UpdateUser(ctx context.Context, user *models.User, upd UserUpdate) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.update_user", "user_id", user.ID)

	next := *user
	if upd.Email != nil {
		email := strings.TrimSpace(*upd.Email)
		if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
			l.Warn("update_user_error", "status", 400, "reason", "invalid email address")
			return nil, fmt.Errorf("%w: invalid email address", ErrValidation)
		}
		if email != user.Email {
			if err := s.ensureFree(ctx, s.Users.FindUserByEmail, email, user.ID, ErrEmailTaken); err != nil {
				l.Warn("update_user_error", "reason", err.Error())
				return nil, err
			}
		}
		next.Email = email
	}
	if upd.Username != nil {
		username := strings.TrimSpace(*upd.Username)
		if username == "" {
			l.Warn("update_user_error", "status", 400, "reason", "empty username")
			return nil, fmt.Errorf("%w: username must not be empty", ErrValidation)
		}
		if username != user.Username {
			if err := s.ensureFree(ctx, s.Users.FindUserByUsername, username, user.ID, ErrUsernameTaken); err != nil {
				l.Warn("update_user_error", "reason", err.Error())
				return nil, err
			}
		}
		next.Username = username
	}
	if upd.Password != nil {
		if *upd.Password == "" {
			l.Warn("update_user_error", "status", 400, "reason", "empty password")
			return nil, fmt.Errorf("%w: password must not be empty", ErrValidation)
		}
		pwHash, err := hash.HashPasswordCost(*upd.Password, s.BcryptCost)
		if err != nil {
			l.Error("update_user_error", "status", 500, "reason", "cannot hash the password", "error", err)
			return nil, err
		}
		next.PasswordHash = pwHash
	}

	if err := s.Users.UpdateUser(ctx, &next); err != nil {
		switch {
		case errors.Is(err, repo.ErrDuplicateEntry):
			l.Warn("update_user_error", "status", 409, "reason", "concurrent duplicate")
			return nil, ErrAlreadyExists
		case errors.Is(err, repo.ErrNotFound):
			return nil, ErrUnknownSubject
		}
		l.Error("update_user_error", "status", 500, "error", err)
		return nil, err
	}

	s.publish(ctx, next.ID, "user_updated", map[string]any{
		"user_id":  next.ID,
		"username": next.Username,
	})
	l.Info("update_user_successful")
	return &next, nil
}

func (s *AuthService) ensureFree(ctx context.Context, find func(context.Context, string) (*models.User, error), value string, self uint, taken error) error {
	other, err := find(ctx, value)
	switch {
	case err == nil && other.ID != self:
		return taken
	case err == nil, errors.Is(err, repo.ErrNotFound):
		return nil
	}
	return err
}

// DeleteUser removes the account and its correction history. Tokens issued
// to it resolve to ErrUnknownSubject afterwards.
func (s *AuthService) DeleteUser(ctx context.Context, user *models.User) (bool, error) {
	l := logging.FromContext(ctx).With("svc", "auth.delete_user", "user_id", user.ID)

	ok, err := s.Users.DeleteUser(ctx, user.ID)
	if err != nil {
		l.Error("delete_user_error", "status", 500, "error", err)
		return false, err
	}
	if !ok {
		return false, nil
	}

	s.publish(ctx, user.ID, "user_deleted", map[string]any{"user_id": user.ID})
	l.Info("delete_user_successful")
	return true, nil
}

func (s *AuthService) WhoAmI(ctx context.Context, accessToken string) (*models.User, error) {
	return s.ResolveCurrentUser(ctx, accessToken)
}

func (s *AuthService) ResolveCurrentUser(ctx context.Context, token string) (*models.User, error) {
	return s.resolve(ctx, token, tokens.KindAccess)
}

func (s *AuthService) ResolveRefreshUser(ctx context.Context, token string) (*models.User, error) {
	return s.resolve(ctx, token, tokens.KindRefresh)
}

func (s *AuthService) resolve(ctx context.Context, token string, kind tokens.Kind) (*models.User, error) {
	claims, err := s.Tokens.Decode(token)
	if err != nil {
		if errors.Is(err, tokens.ErrExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Kind != kind {
		return nil, ErrWrongTokenKind
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 0)
	if err != nil {
		return nil, ErrUnknownSubject
	}
	user, err := s.Users.FindUserByID(ctx, uint(id))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUnknownSubject
		}
		return nil, err
	}
	return user, nil
}

// IsAuthError reports whether err should surface as 401.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrWrongTokenKind) ||
		errors.Is(err, ErrUnknownSubject)
}

func (s *AuthService) publish(ctx context.Context, userID uint, typ string, payload any) {
	if s.Events == nil {
		return
	}
	key := strconv.FormatUint(uint64(userID), 10)
	if err := s.Events.PublishEvent(ctx, events.TopicUsers, key, events.NewEvent(typ, payload)); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "topic", events.TopicUsers, "type", typ, "error", err)
	}
}

func subjectOf(u *models.User) string {
	return strconv.FormatUint(uint64(u.ID), 10)
}
