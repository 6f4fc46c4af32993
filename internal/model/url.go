package model

import (
	"net/url"
	"strings"
	"time"
)

// ParseURL проверяет, что строка это корректный абсолютный URL
func ParseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyURL
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, ErrInvalidURL
	}

	return u, nil
}

// Domain возвращает хост без префикса www. Для некорректного URL - пустая строка
func Domain(raw string) string {
	u, err := ParseURL(raw)
	if err != nil {
		return ""
	}

	return strings.TrimPrefix(u.Hostname(), "www.")
}

// FallbackTitle - заголовок, если пользователь его не ввел: сначала домен, потом сам URL
func FallbackTitle(title, raw string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	if d := Domain(raw); d != "" {
		return d
	}

	return strings.TrimSpace(raw)
}

// Today возвращает календарную дату в UTC в формате YYYY-MM-DD
func Today(now time.Time) string {
	return now.UTC().Format("2006-01-02")
}
