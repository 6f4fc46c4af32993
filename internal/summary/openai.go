package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"

	"github.com/kovalyov-valentin/linkshelf/internal/model"
)

// Промт по умолчанию. Ответ должен быть JSON объектом, который мы потом разбираем
const defaultPrompt = `
You are given the text of a web article. Reply with a single JSON object with the fields:
"title" (short article title), "summary" (2-3 sentences), "keywords" (up to 5 short keywords),
"category" (one of: %s). Do not add anything except the JSON object.`

// Сколько текста статьи отправляем в модель
const maxInputRunes = 6000

// Локальная замена удаленного воркера: текст страницы достаем через readability,
// а анализ делает openai
type OpenAIAnalyzer struct {
	// sdk для openai
	client *openai.Client
	promt  string
	// Флаг вкл/выкл. Без ключа отдаем только то, что нашел readability
	enabled bool
	mu      sync.Mutex

	pages *PageFetcher
}

func NewOpenAIAnalyzer(apiKey string, promt string, pages *PageFetcher) *OpenAIAnalyzer {
	if strings.TrimSpace(promt) == "" {
		promt = fmt.Sprintf(defaultPrompt, strings.Join(categoryNames(), ", "))
	}

	s := &OpenAIAnalyzer{
		client: openai.NewClient(apiKey),
		promt:  promt,
		pages:  pages,
	}

	log.Printf("openai analyzer enabled: %v", apiKey != "")

	if apiKey != "" {
		s.enabled = true
	}

	return s
}

// Превью это просто заголовок страницы
func (s *OpenAIAnalyzer) Preview(ctx context.Context, url string) (model.Preview, error) {
	page, err := s.pages.Fetch(ctx, url)
	if err != nil {
		return model.Preview{}, err
	}

	return model.Preview{Title: page.Title}, nil
}

func (s *OpenAIAnalyzer) Analyze(ctx context.Context, url string) (model.Analysis, error) {
	page, err := s.pages.Fetch(ctx, url)
	if err != nil {
		return model.Analysis{}, err
	}

	if !s.enabled {
		return model.Analysis{Title: page.Title, Summary: page.Excerpt}, nil
	}

	raw, err := s.complete(ctx, truncate(page.Text, maxInputRunes))
	if err != nil {
		return model.Analysis{}, err
	}

	analysis, err := parseAnalysis(raw)
	if err != nil {
		return model.Analysis{}, err
	}

	if analysis.Title == "" {
		analysis.Title = page.Title
	}

	return analysis, nil
}

func (s *OpenAIAnalyzer) complete(ctx context.Context, text string) (string, error) {
	// Обкладываем мьютексами, т.к. конкурентный доступ может вызывать сюрпризы
	s.mu.Lock()
	defer s.mu.Unlock()

	// Составляем запрос к openai
	request := openai.ChatCompletionRequest{
		Model: openai.GPT3Dot5Turbo,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: s.promt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
		MaxTokens:   512,
		Temperature: 0.3,
		TopP:        1,
	}

	resp, err := s.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	// openai отправляет нам несколько вариантов, мы выбираем самый первый
	return resp.Choices[0].Message.Content, nil
}

// Разбираем ответ модели. Модель любит заворачивать JSON в markdown блок, поэтому
// берем все от первой открывающей до последней закрывающей скобки
func parseAnalysis(raw string) (model.Analysis, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return model.Analysis{}, fmt.Errorf("no json object in model reply: %q", truncate(raw, 80))
	}

	var analysis model.Analysis
	if err := json.Unmarshal([]byte(raw[start:end+1]), &analysis); err != nil {
		return model.Analysis{}, fmt.Errorf("decode model reply: %w", err)
	}

	analysis.Title = strings.TrimSpace(analysis.Title)
	analysis.Summary = trimToSentence(analysis.Summary)
	if c := strings.ToLower(strings.TrimSpace(analysis.Category)); c != "" {
		analysis.Category = string(model.ParseCategory(c))
	}

	keywords := make([]string, 0, len(analysis.Keywords))
	for _, k := range analysis.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	analysis.Keywords = keywords

	return analysis, nil
}

// Если модель оборвала ответ на середине предложения, отрезаем хвост
func trimToSentence(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasSuffix(raw, ".") {
		return raw
	}

	sentences := strings.Split(raw, ".")
	if len(sentences) == 1 {
		return raw
	}

	// Берем все предложения кроме последнего. добавляем между ними точку. и к последнему предложению добавляем точку.
	return strings.Join(sentences[:len(sentences)-1], ".") + "."
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n])
}

func categoryNames() []string {
	names := make([]string, 0, len(model.Categories()))
	for _, c := range model.Categories() {
		names = append(names, string(c))
	}

	return names
}
