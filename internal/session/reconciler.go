// Package session сводит события авторизации с загрузкой данных в стор.
//
// Reconciler единственный, кто выдает и отзывает право писать в стор:
// вход забирает стор под пользователя (store.Claim), выход его очищает (store.Clear).
// Загрузка идет не больше одной за раз, результат устаревшей загрузки выбрасывается.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/kovalyov-valentin/linkshelf/internal/model"
	"github.com/kovalyov-valentin/linkshelf/internal/store"
)

type EventKind int

const (
	// Провайдер авторизации сообщил о сессии, которая была на старте
	EventInitialSession EventKind = iota
	EventSignedIn
	EventSignedOut
	EventTokenRefreshed
)

func (k EventKind) String() string {
	switch k {
	case EventInitialSession:
		return "initial-session"
	case EventSignedIn:
		return "signed-in"
	case EventSignedOut:
		return "signed-out"
	case EventTokenRefreshed:
		return "token-refreshed"
	}

	return fmt.Sprintf("event(%d)", int(k))
}

type Event struct {
	Kind EventKind
	// nil - пользователя нет
	Session *model.Session
}

type Loader interface {
	LoadAll(ctx context.Context, userID string) (model.Snapshot, error)
}

// Source - провайдер авторизации для одного клиента
type Source interface {
	Current(ctx context.Context) (*model.Session, error)
	SignOut(ctx context.Context) error
}

type Notifier interface {
	Notify(ctx context.Context, notice model.Notice)
}

type Reconciler struct {
	store    *store.Store
	loader   Loader
	source   Source
	notifier Notifier
	// Вызывается после очистки стора при выходе (сброс формы, отмена превью)
	onClear func()

	mu      sync.Mutex
	phase   model.Phase
	session *model.Session
	// Начальная сессия уже обработана: ранним запросом или поздним событием, кем-то одним
	sawInitial bool
	loading    bool
}

func NewReconciler(st *store.Store, loader Loader, source Source, notifier Notifier, onClear func()) *Reconciler {
	if onClear == nil {
		onClear = func() {}
	}

	return &Reconciler{
		store:    st,
		loader:   loader,
		source:   source,
		notifier: notifier,
		onClear:  onClear,
		phase:    model.PhaseUninitialized,
	}
}

func (r *Reconciler) Phase() model.Phase {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.phase
}

// Session возвращает копию текущей сессии или nil
func (r *Reconciler) Session() *model.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return nil
	}

	s := *r.session
	return &s
}

// Initialized - начальная сессия уже обработана (через Boot или событием)
func (r *Reconciler) Initialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.sawInitial
}

func (r *Reconciler) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.loading
}

// Boot сам спрашивает текущую сессию, не дожидаясь события от провайдера.
// Если событие о начальной сессии уже пришло, ничего не делает
func (r *Reconciler) Boot(ctx context.Context) error {
	r.mu.Lock()
	if r.sawInitial {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	current, err := r.source.Current(ctx)
	if err != nil {
		log.Printf("[ERROR] failed to fetch session: %v", err)
		r.notifier.Notify(ctx, model.Notice{Severity: model.SeverityErr, Message: "Session check failed: " + err.Error()})

		r.mu.Lock()
		if r.session == nil && r.phase == model.PhaseUninitialized {
			r.phase = model.PhaseSignedOut
		}
		r.mu.Unlock()

		return fmt.Errorf("fetch session: %w", err)
	}

	r.mu.Lock()
	// Пока ходили за сессией, успело прийти событие
	if r.sawInitial {
		r.mu.Unlock()
		return nil
	}
	r.sawInitial = true

	return r.apply(ctx, current, true)
}

// Handle обрабатывает событие провайдера авторизации
func (r *Reconciler) Handle(ctx context.Context, event Event) error {
	r.mu.Lock()

	switch event.Kind {
	case EventInitialSession:
		if r.sawInitial {
			r.mu.Unlock()
			return nil
		}
		r.sawInitial = true

		return r.apply(ctx, event.Session, r.store.Empty())

	case EventSignedIn:
		return r.apply(ctx, event.Session, true)

	case EventSignedOut:
		// Явный выход уже все сделал
		if r.phase == model.PhaseSignedOut {
			r.mu.Unlock()
			return nil
		}

		r.clearLocked()
		r.mu.Unlock()
		r.onClear()

		return nil

	case EventTokenRefreshed:
		defer r.mu.Unlock()

		if event.Session == nil || r.session == nil || r.session.UserID != event.Session.UserID {
			return nil
		}

		s := *event.Session
		r.session = &s

		return nil
	}

	r.mu.Unlock()

	return fmt.Errorf("unknown session event %s", event.Kind)
}

// SignOut - выход по просьбе пользователя. Фаза и стор меняются сразу,
// поэтому событие signed-out, пришедшее после, уже ничего не сделает
func (r *Reconciler) SignOut(ctx context.Context) error {
	r.mu.Lock()
	r.clearLocked()
	// После выхода следующий вход начинается с чистого листа
	r.sawInitial = false
	r.mu.Unlock()

	r.onClear()

	if err := r.source.SignOut(ctx); err != nil {
		log.Printf("[WARN] remote sign out failed: %v", err)
	}

	r.notifier.Notify(ctx, model.Notice{Severity: model.SeverityInfo, Message: "Signed out"})

	return nil
}

func (r *Reconciler) clearLocked() {
	r.store.Clear()
	r.session = nil
	r.phase = model.PhaseSignedOut
}

// apply вызывается под r.mu и отпускает его сам
func (r *Reconciler) apply(ctx context.Context, next *model.Session, force bool) error {
	if next == nil || next.UserID == "" {
		r.clearLocked()
		r.mu.Unlock()
		r.onClear()

		return nil
	}

	changed := r.session == nil || r.session.UserID != next.UserID
	shouldLoad := force || changed || r.store.Empty()

	s := *next
	r.session = &s
	r.phase = model.PhaseSignedIn
	r.store.Claim(next.UserID)

	if !shouldLoad {
		r.mu.Unlock()
		return nil
	}

	// Одна загрузка за раз. Лишний запрос не ставим в очередь: текущая загрузка
	// доведет стор до актуального состояния
	if r.loading {
		r.mu.Unlock()
		return nil
	}
	r.loading = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.loading = false
		r.mu.Unlock()
	}()

	return r.load(ctx)
}

func (r *Reconciler) load(ctx context.Context) error {
	for {
		lease := r.store.Lease()
		if lease.Owner == "" {
			return nil
		}

		snapshot, err := r.loader.LoadAll(ctx, lease.Owner)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}

			log.Printf("[ERROR] failed to load data for %s: %v", lease.Owner, err)
			if r.store.Valid(lease) {
				r.notifier.Notify(ctx, model.Notice{Severity: model.SeverityErr, Message: "Failed to load your data: " + err.Error()})
			}

			return fmt.Errorf("load data: %w", err)
		}

		r.mu.Lock()
		current := r.phase == model.PhaseSignedIn && r.session != nil && r.session.UserID == lease.Owner
		applied := current && r.store.ReplaceAll(lease, snapshot.Articles, snapshot.Collections)
		again := !applied && r.phase == model.PhaseSignedIn
		r.mu.Unlock()

		if applied {
			log.Printf("loaded %d articles and %d collections for %s", len(snapshot.Articles), len(snapshot.Collections), lease.Owner)
			return nil
		}

		// Пока грузили, вошел другой пользователь. Его запрос на загрузку был отброшен,
		// так что грузим еще раз уже для него
		if !again {
			return nil
		}
	}
}
