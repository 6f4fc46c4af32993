package summary

import (
	"context"
	"fmt"
	"io"
	"net/http"
	nurl "net/url"
	"regexp"
	"strings"

	"github.com/go-shiori/go-readability"
)

// Страница, очищенная от html
type Page struct {
	Title   string
	Excerpt string
	Text    string
}

// Ограничение на размер скачиваемой страницы
const maxPageBytes = 4 << 20

// PageFetcher скачивает страницу и вытаскивает из нее текст через readability
type PageFetcher struct {
	client *http.Client
}

func NewPageFetcher(client *http.Client) *PageFetcher {
	if client == nil {
		client = &http.Client{}
	}

	return &PageFetcher{client: client}
}

func (f *PageFetcher) Fetch(ctx context.Context, url string) (Page, error) {
	pageURL, err := nurl.Parse(url)
	if err != nil {
		return Page{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Page{}, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Page{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Page{}, fmt.Errorf("unexpected status code %d for %q", resp.StatusCode, url)
	}

	return parsePage(io.LimitReader(resp.Body, maxPageBytes), pageURL)
}

func parsePage(r io.Reader, pageURL *nurl.URL) (Page, error) {
	// Преобразуем наш reader в документ
	doc, err := readability.FromReader(r, pageURL)
	if err != nil {
		return Page{}, err
	}

	return Page{
		Title:   strings.TrimSpace(doc.Title),
		Excerpt: strings.TrimSpace(doc.Excerpt),
		Text:    cleanText(doc.TextContent),
	}, nil
}

// Библиотека readability создает много пустых строк в тексте очищенном от html тегов.
// Все последовательности из 3 и более переводов строки заменяем на один
var redundantNewLines = regexp.MustCompile(`\n{3,}`)

func cleanText(text string) string {
	return strings.TrimSpace(redundantNewLines.ReplaceAllString(text, "\n"))
}
