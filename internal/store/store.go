// Package store хранит состояние клиента в памяти: активные статьи, корзину и коллекции
// ровно одного вошедшего пользователя.
package store

import (
	"sync"

	"github.com/samber/lo"

	"github.com/kovalyov-valentin/linkshelf/internal/model"
)

// Lease - право записи в стор, выданное конкретной сессии.
// Асинхронная операция берет Lease до того как уйти в сеть, и применяет результат
// только если Lease все еще действителен. После Clear или смены пользователя
// все ранее выданные Lease протухают
type Lease struct {
	Owner string
	Gen   uint64
}

type Store struct {
	mu sync.Mutex

	owner string
	gen   uint64

	articles    []model.Article
	trash       []model.Article
	collections []model.Collection
}

func New() *Store {
	return &Store{}
}

// Lease возвращает текущее право записи
func (s *Store) Lease() Lease {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Lease{Owner: s.owner, Gen: s.gen}
}

// Valid проверяет что Lease выдан текущему владельцу и стор с тех пор не очищался
func (s *Store) Valid(l Lease) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.valid(l)
}

func (s *Store) valid(l Lease) bool {
	return l.Owner != "" && l.Owner == s.owner && l.Gen == s.gen
}

// Owner - пользователь, чьи данные сейчас лежат в сторе
func (s *Store) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.owner
}

// Claim закрепляет стор за пользователем. Если пользователь сменился,
// стор очищается и все старые Lease протухают
func (s *Store) Claim(owner string) Lease {
	s.mu.Lock()
	defer s.mu.Unlock()

	if owner != s.owner {
		s.reset()
		s.owner = owner
	}

	return Lease{Owner: s.owner, Gen: s.gen}
}

// ReplaceAll атомарно подменяет статьи и коллекции (используется при загрузке).
// Корзина локальная и переживает перезагрузку того же пользователя
func (s *Store) ReplaceAll(l Lease, articles []model.Article, collections []model.Collection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.valid(l) {
		return false
	}

	s.articles = cloneArticles(articles)
	s.collections = append([]model.Collection(nil), collections...)

	return true
}

// Clear очищает стор. Можно вызывать в любой момент, не дожидаясь операций в полете:
// их результаты будут отброшены, так как их Lease больше не действителен
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	s.owner = ""
}

func (s *Store) reset() {
	s.gen++
	s.articles = nil
	s.trash = nil
	s.collections = nil
}

// Empty - нет ни одной активной статьи
func (s *Store) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.articles) == 0
}

func (s *Store) Articles() []model.Article {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneArticles(s.articles)
}

func (s *Store) Trash() []model.Article {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneArticles(s.trash)
}

func (s *Store) Collections() []model.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]model.Collection(nil), s.collections...)
}

func (s *Store) Article(id int64) (model.Article, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := indexOf(s.articles, id); i >= 0 {
		return s.articles[i].Clone(), true
	}

	return model.Article{}, false
}

func (s *Store) TrashedArticle(id int64) (model.Article, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := indexOf(s.trash, id); i >= 0 {
		return s.trash[i].Clone(), true
	}

	return model.Article{}, false
}

func (s *Store) Collection(id int64) (model.Collection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return lo.Find(s.collections, func(c model.Collection) bool { return c.ID == id })
}

// PrependArticle добавляет статью в начало списка (сначала самые новые).
// Статья с тем же ID заменяется
func (s *Store) PrependArticle(l Lease, a model.Article) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.valid(l) {
		return false
	}

	s.articles = prepend(s.articles, a.Clone())

	return true
}

// UpdateArticle меняет статью на месте, порядок остальных не трогаем
func (s *Store) UpdateArticle(l Lease, id int64, fn func(*model.Article)) (model.Article, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.valid(l) {
		return model.Article{}, false
	}

	i := indexOf(s.articles, id)
	if i < 0 {
		return model.Article{}, false
	}

	fn(&s.articles[i])

	return s.articles[i].Clone(), true
}

func (s *Store) RemoveArticle(l Lease, id int64) (model.Article, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.valid(l) {
		return model.Article{}, false
	}

	var a model.Article
	var ok bool
	s.articles, a, ok = remove(s.articles, id)

	return a, ok
}

func (s *Store) PrependTrash(l Lease, a model.Article) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.valid(l) {
		return false
	}

	s.trash = prepend(s.trash, a.Clone())

	return true
}

// MoveToTrash за одну операцию переносит статью из активных в корзину,
// чтобы статья никогда не оказалась ни там ни там. Возвращает прежнюю позицию в списке
func (s *Store) MoveToTrash(l Lease, id int64, stamp func(*model.Article)) (model.Article, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.valid(l) {
		return model.Article{}, -1, false
	}

	i := indexOf(s.articles, id)
	if i < 0 {
		return model.Article{}, -1, false
	}

	rest, a, _ := remove(s.articles, id)
	stamp(&a)
	s.articles = rest
	s.trash = prepend(s.trash, a)

	return a.Clone(), i, true
}

// ReturnFromTrash откатывает MoveToTrash: статья уходит из корзины обратно на позицию index
func (s *Store) ReturnFromTrash(l Lease, id int64, index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.valid(l) {
		return false
	}

	rest, a, ok := remove(s.trash, id)
	if !ok {
		return false
	}

	a.TrashedAt = nil
	s.trash = rest

	if index < 0 || index > len(s.articles) {
		index = len(s.articles)
	}

	articles := make([]model.Article, 0, len(s.articles)+1)
	articles = append(articles, s.articles[:index]...)
	articles = append(articles, a)
	articles = append(articles, s.articles[index:]...)
	s.articles = articles

	return true
}

func (s *Store) RemoveTrash(l Lease, id int64) (model.Article, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.valid(l) {
		return model.Article{}, false
	}

	var a model.Article
	var ok bool
	s.trash, a, ok = remove(s.trash, id)

	return a, ok
}

// ClearTrash очищает корзину и возвращает сколько статей удалено
func (s *Store) ClearTrash(l Lease) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.valid(l) {
		return 0, false
	}

	n := len(s.trash)
	s.trash = nil

	return n, true
}

func (s *Store) AddCollection(l Lease, c model.Collection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.valid(l) {
		return false
	}

	s.collections = append(s.collections, c)

	return true
}

func (s *Store) UpdateCollection(l Lease, c model.Collection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.valid(l) {
		return false
	}

	_, i, ok := lo.FindIndexOf(s.collections, func(x model.Collection) bool { return x.ID == c.ID })
	if !ok {
		return false
	}

	s.collections[i] = c

	return true
}

// RemoveCollection удаляет коллекцию и вычищает ее ID из всех статей (и активных, и в корзине).
// Возвращает активные статьи, которые были затронуты, чтобы их можно было сохранить
func (s *Store) RemoveCollection(l Lease, id int64) ([]model.Article, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.valid(l) {
		return nil, false
	}

	s.collections = lo.Filter(s.collections, func(c model.Collection, _ int) bool { return c.ID != id })

	var touched []model.Article
	for i := range s.articles {
		if s.articles[i].InCollection(id) {
			s.articles[i].Collections = lo.Without(s.articles[i].Collections, id)
			touched = append(touched, s.articles[i].Clone())
		}
	}
	for i := range s.trash {
		s.trash[i].Collections = lo.Without(s.trash[i].Collections, id)
	}

	return touched, true
}

func indexOf(list []model.Article, id int64) int {
	_, i, ok := lo.FindIndexOf(list, func(a model.Article) bool { return a.ID == id })
	if !ok {
		return -1
	}

	return i
}

func prepend(list []model.Article, a model.Article) []model.Article {
	rest := lo.Filter(list, func(x model.Article, _ int) bool { return x.ID != a.ID })

	return append([]model.Article{a}, rest...)
}

func remove(list []model.Article, id int64) ([]model.Article, model.Article, bool) {
	i := indexOf(list, id)
	if i < 0 {
		return list, model.Article{}, false
	}

	a := list[i]
	rest := make([]model.Article, 0, len(list)-1)
	rest = append(rest, list[:i]...)
	rest = append(rest, list[i+1:]...)

	return rest, a, true
}

func cloneArticles(list []model.Article) []model.Article {
	return lo.Map(list, func(a model.Article, _ int) model.Article { return a.Clone() })
}
