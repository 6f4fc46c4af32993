package model

import "errors"

var (
	// Ошибки валидации. Отклоняются до любого удаленного вызова
	ErrEmptyURL      = errors.New("url is empty")
	ErrInvalidURL    = errors.New("url is invalid")
	ErrEmptyName     = errors.New("name is empty")
	ErrInvalidRating = errors.New("rating must be between 0 and 5")
	ErrInvalidStatus = errors.New("unknown status")
	ErrInvalidEmail  = errors.New("enter a valid email")
	ErrWeakPassword  = errors.New("password must be 6 to 72 characters")

	// Сессия
	ErrNotSignedIn    = errors.New("not signed in")
	ErrSessionExpired = errors.New("session expired")

	// Учетные записи
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email is already registered")

	// Сохранение уже выполняется
	ErrSaveInFlight = errors.New("save already in progress")

	ErrArticleNotFound    = errors.New("article not found")
	ErrCollectionNotFound = errors.New("collection not found")

	// Пользователь не подтвердил действие
	ErrNotConfirmed = errors.New("not confirmed")
)

// IsValidation сообщает, что ошибка относится к валидации ввода
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyURL) ||
		errors.Is(err, ErrInvalidURL) ||
		errors.Is(err, ErrEmptyName) ||
		errors.Is(err, ErrInvalidRating) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidEmail) ||
		errors.Is(err, ErrWeakPassword)
}
