package session

import (
	"context"
	"errors"
	"strings"

	"cafe_admin/internal/cafe"
	"cafe_admin/internal/nav"

	"go.uber.org/zap"
)

var ErrMissingCredentials = errors.New("email and password are required")

type Authenticator interface {
	Login(ctx context.Context, email, password string) (cafe.LoginResponse, error)
}

type Auth struct {
	client Authenticator
	store  *Store
	logger *zap.Logger
}

func NewAuth(client Authenticator, store *Store, logger *zap.Logger) *Auth {
	return &Auth{
		client: client,
		store:  store,
		logger: logger.Named("auth"),
	}
}

// Login authenticates and persists the session. It returns where the shell
// should go next: the admin profile for admins, the root otherwise.
func (a *Auth) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", ErrMissingCredentials
	}

	resp, err := a.client.Login(ctx, email, password)
	if err != nil {
		a.logger.Warn("login failed", zap.String("email", email), zap.Error(err))
		return "", err
	}

	sess, err := a.store.Save(resp)
	if err != nil {
		return "", err
	}
	a.logger.Info("logged in", zap.String("email", email), zap.Bool("admin", sess.UserIsAdmin))

	if sess.UserIsAdmin {
		return nav.PathAdminProfile, nil
	}
	return nav.PathRoot, nil
}

func (a *Auth) Logout() (string, error) {
	if err := a.store.Clear(); err != nil {
		return "", err
	}
	a.logger.Info("logged out")
	return nav.PathRoot, nil
}

func (a *Auth) Current() (Session, error) {
	return a.store.Current()
}

// IsAdmin reports whether the current session may enter protected routes.
func (a *Auth) IsAdmin() bool {
	sess, err := a.store.Current()
	return err == nil && sess.UserIsAdmin
}
