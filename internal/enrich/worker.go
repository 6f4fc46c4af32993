// Package enrich - клиент удаленного сервиса обогащения статей (превью и AI анализ).
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kovalyov-valentin/linkshelf/internal/model"
)

// Неуспешный ответ воркера
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("worker %d for %q", e.StatusCode, e.URL)
	}

	return fmt.Sprintf("worker %d for %q: %s", e.StatusCode, e.URL, e.Body)
}

// 401 от воркера означает что сессия протухла
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return model.ErrSessionExpired
	}

	return nil
}

// Сколько символов тела ответа кладем в ошибку
const maxErrBody = 100

type WorkerClient struct {
	previewURL string
	analyzeURL string
	// Bearer токен для авторизации на воркере
	token  string
	client *http.Client
}

func NewWorkerClient(baseURL, token string) *WorkerClient {
	baseURL = strings.TrimRight(baseURL, "/")

	return &WorkerClient{
		previewURL: baseURL + "/preview",
		analyzeURL: baseURL + "/analyze",
		token:      token,
		client:     &http.Client{},
	}
}

// Быстрое превью: только заголовок страницы
func (c *WorkerClient) Preview(ctx context.Context, url string) (model.Preview, error) {
	var preview model.Preview
	if err := c.post(ctx, c.previewURL, url, &preview); err != nil {
		return model.Preview{}, err
	}

	return preview, nil
}

// Полный AI анализ. Ограничение по времени задает вызывающий через ctx
func (c *WorkerClient) Analyze(ctx context.Context, url string) (model.Analysis, error) {
	var analysis model.Analysis
	if err := c.post(ctx, c.analyzeURL, url, &analysis); err != nil {
		return model.Analysis{}, err
	}

	return analysis, nil
}

func (c *WorkerClient) post(ctx context.Context, endpoint, pageURL string, out any) error {
	body, err := json.Marshal(struct {
		URL string `json:"url"`
	}{URL: pageURL})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))

		return &StatusError{
			StatusCode: resp.StatusCode,
			URL:        endpoint,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode worker response: %w", err)
	}

	return nil
}
