// Package auth проверяет email и пароль пользователя. Пароли хранятся как bcrypt хеши.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/kovalyov-valentin/linkshelf/internal/model"
)

const (
	MinPasswordLength = 6
	// Дальше bcrypt пароль не читает
	MaxPasswordLength = 72
)

type UserStorage interface {
	// CreateUser возвращает model.ErrEmailTaken, если email уже занят
	CreateUser(ctx context.Context, user model.User) error
	// User возвращает nil, если такого пользователя нет
	User(ctx context.Context, email string) (*model.User, error)
}

type Authenticator struct {
	users UserStorage
	cost  int
}

func New(users UserStorage) *Authenticator {
	return &Authenticator{users: users, cost: bcrypt.DefaultCost}
}

// SignUp заводит учетную запись. Вход делается отдельно
func (a *Authenticator) SignUp(ctx context.Context, email, password string) (model.User, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return model.User{}, err
	}

	if err := validatePassword(password); err != nil {
		return model.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := model.User{
		ID:           email,
		Email:        email,
		PasswordHash: string(hash),
	}

	if err := a.users.CreateUser(ctx, user); err != nil {
		return model.User{}, err
	}

	return user, nil
}

// SignIn проверяет пароль. Неизвестный email и неверный пароль неразличимы
func (a *Authenticator) SignIn(ctx context.Context, email, password string) (model.User, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return model.User{}, err
	}

	user, err := a.users.User(ctx, email)
	if err != nil {
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return model.User{}, model.ErrInvalidCredentials
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return model.User{}, model.ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, fmt.Errorf("compare password: %w", err)
	}

	return *user, nil
}

// NormalizeEmail проверяет адрес и приводит его к нижнему регистру. Адрес и есть id пользователя
func NormalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return "", model.ErrInvalidEmail
	}

	return strings.ToLower(addr.Address), nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength || len(password) > MaxPasswordLength {
		return model.ErrWeakPassword
	}

	return nil
}
