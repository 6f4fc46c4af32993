// Package draft хранит состояние формы добавления статьи: url, заголовок, теги и прочее.
package draft

import (
	"strings"
	"sync"

	"github.com/tomakado/containers/set"

	"github.com/kovalyov-valentin/linkshelf/internal/model"
)

// То, что пользователь ввел в форму на момент отправки
type Values struct {
	URL      string
	Title    string
	Tags     []string
	Category model.Category
	Status   model.Status
	Memo     string
}

type Draft struct {
	mu sync.Mutex

	url   string
	title string
	// Пользователь сам редактировал заголовок. Флаг односторонний: до Reset назад не сбрасывается
	titleEdited bool
	tags        []string
	category    model.Category
	status      model.Status
	memo        string
}

func New() *Draft {
	d := &Draft{}
	d.Reset()

	return d
}

// Reset возвращает форму в начальное состояние (как при открытии)
func (d *Draft) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.url = ""
	d.title = ""
	d.titleEdited = false
	d.tags = nil
	d.category = model.DefaultCategory
	d.status = model.StatusUnread
	d.memo = ""
}

func (d *Draft) SetURL(url string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.url = strings.TrimSpace(url)
}

// EditTitle - пользователь сам ввел заголовок
func (d *Draft) EditTitle(title string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.title = title
	d.titleEdited = true
}

// SuggestTitle подставляет заголовок из превью, только если пользователь его не трогал
func (d *Draft) SuggestTitle(title string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.titleEdited {
		return false
	}

	d.title = title

	return true
}

func (d *Draft) TitleEdited() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.titleEdited
}

func (d *Draft) Title() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.title
}

// AddTag добавляет тег. Ведущий # отрезается, дубликаты и пустые строки игнорируются
func (d *Draft) AddTag(raw string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	tag := NormalizeTag(raw)
	if tag == "" || set.New(d.tags...).Contains(tag) {
		return false
	}

	d.tags = append(d.tags, tag)

	return true
}

func (d *Draft) RemoveTag(tag string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tags := make([]string, 0, len(d.tags))
	for _, t := range d.tags {
		if t != tag {
			tags = append(tags, t)
		}
	}
	d.tags = tags
}

func (d *Draft) SetCategory(c model.Category) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.category = c
}

func (d *Draft) SetStatus(s model.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.status = s
}

func (d *Draft) SetMemo(memo string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.memo = memo
}

// Values снимает копию формы
func (d *Draft) Values() Values {
	d.mu.Lock()
	defer d.mu.Unlock()

	return Values{
		URL:      d.url,
		Title:    d.title,
		Tags:     append([]string(nil), d.tags...),
		Category: d.category,
		Status:   d.status,
		Memo:     d.memo,
	}
}

// NormalizeTag убирает пробелы и ведущий #
func NormalizeTag(raw string) string {
	return strings.TrimPrefix(strings.TrimSpace(raw), "#")
}
