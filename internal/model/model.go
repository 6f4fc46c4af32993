package model

import "time"

// Категория статьи. Набор фиксированный
type Category string

const (
	CategoryTech     Category = "tech"
	CategoryBusiness Category = "business"
	CategoryScience  Category = "science"
	CategoryDesign   Category = "design"
	CategoryCulture  Category = "culture"
	CategoryPolitics Category = "politics"
	CategoryHealth   Category = "health"
	CategoryOther    Category = "other"
)

// Категория по умолчанию для новой статьи
const DefaultCategory = CategoryTech

var categories = []Category{
	CategoryTech,
	CategoryBusiness,
	CategoryScience,
	CategoryDesign,
	CategoryCulture,
	CategoryPolitics,
	CategoryHealth,
	CategoryOther,
}

// Categories возвращает все допустимые категории
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// ParseCategory приводит произвольную строку к категории.
// Все что нам неизвестно (например ответ от AI) попадает в other
func ParseCategory(s string) Category {
	for _, c := range categories {
		if string(c) == s {
			return c
		}
	}

	return CategoryOther
}

// Статус прочтения
type Status string

const (
	StatusUnread Status = "unread"
	StatusRead   Status = "read"
)

func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusUnread, StatusRead:
		return Status(s), true
	}

	return "", false
}

// Максимальная оценка статьи
const MaxRating = 5

// Сохраненная ссылка на статью
type Article struct {
	// Выдается хранилищем, 0 до первого успешного сохранения
	ID     int64
	UserID string
	URL    string
	Title  string
	// Домен, вычисленный из URL
	Source  string
	Summary string
	// Порядок важен для отображения, уникальность не требуется
	Keywords []string
	// Уникальные, порядок добавления важен
	Tags     []string
	Category Category
	Status   Status
	Starred  bool
	// От 0 до 5
	Rating int
	// ID коллекций в которые входит статья
	Collections []int64
	Memo        string
	// Календарная дата создания в формате YYYY-MM-DD
	Date string
	// Заполнено только пока статья лежит в корзине
	TrashedAt *time.Time
}

// Clone возвращает копию статьи, не разделяющую слайсы с оригиналом
func (a Article) Clone() Article {
	c := a
	c.Keywords = append([]string(nil), a.Keywords...)
	c.Tags = append([]string(nil), a.Tags...)
	c.Collections = append([]int64(nil), a.Collections...)
	if a.TrashedAt != nil {
		t := *a.TrashedAt
		c.TrashedAt = &t
	}

	return c
}

// InCollection проверяет состоит ли статья в коллекции
func (a Article) InCollection(id int64) bool {
	for _, c := range a.Collections {
		if c == id {
			return true
		}
	}

	return false
}

// Частичное обновление статьи. nil означает что поле не меняется
type ArticlePatch struct {
	Title       *string
	Summary     *string
	Keywords    *[]string
	Tags        *[]string
	Category    *Category
	Status      *Status
	Starred     *bool
	Rating      *int
	Collections *[]int64
	Memo        *string
}

// Empty - в патче нет ни одного поля
func (p ArticlePatch) Empty() bool {
	return p.Title == nil && p.Summary == nil && p.Keywords == nil && p.Tags == nil &&
		p.Category == nil && p.Status == nil && p.Starred == nil && p.Rating == nil &&
		p.Collections == nil && p.Memo == nil
}

// Apply применяет патч к статье на месте
func (p ArticlePatch) Apply(a *Article) {
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Summary != nil {
		a.Summary = *p.Summary
	}
	if p.Keywords != nil {
		a.Keywords = append([]string(nil), (*p.Keywords)...)
	}
	if p.Tags != nil {
		a.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.Category != nil {
		a.Category = *p.Category
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.Starred != nil {
		a.Starred = *p.Starred
	}
	if p.Rating != nil {
		a.Rating = *p.Rating
	}
	if p.Collections != nil {
		a.Collections = append([]int64(nil), (*p.Collections)...)
	}
	if p.Memo != nil {
		a.Memo = *p.Memo
	}
}

// Палитра цветов для коллекций
var Palette = []string{
	"#6366f1",
	"#ec4899",
	"#f59e0b",
	"#10b981",
	"#3b82f6",
	"#8b5cf6",
	"#ef4444",
	"#14b8a6",
}

// NormalizeColor возвращает цвет из палитры. Если цвет не задан или его нет в палитре - первый
func NormalizeColor(color string) string {
	for _, c := range Palette {
		if c == color {
			return c
		}
	}

	return Palette[0]
}

// Коллекция (группа статей)
type Collection struct {
	ID     int64
	UserID string
	Name   string
	Color  string
}

// Фаза сессии
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseSignedIn      Phase = "signed_in"
	PhaseSignedOut     Phase = "signed_out"
)

// Сессия пользователя, как ее отдает провайдер авторизации
type Session struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// Учетная запись. Пароль хранится только в виде bcrypt хеша
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Результат быстрого превью по URL
type Preview struct {
	Title string `json:"title"`
}

// Результат AI анализа статьи
type Analysis struct {
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
	Category string   `json:"category"`
}

// Уровень уведомления
type Severity string

const (
	SeverityOK   Severity = "ok"
	SeverityErr  Severity = "err"
	SeverityInfo Severity = "info"
)

// Уведомление пользователю
type Notice struct {
	Severity Severity
	Message  string
}

// Элемент RSS ленты
type Item struct {
	Title      string
	Categories []string
	Link       string
	Date       time.Time
	Summary    string
	SourceName string
}

// Все данные пользователя, как их отдает хранилище при загрузке
type Snapshot struct {
	Articles    []Article
	Collections []Collection
}
