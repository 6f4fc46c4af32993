package client

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/kovalyov-valentin/linkshelf/internal/model"
)

// Registry держит клиентов по id чата и периодически продлевает их сессии
type Registry struct {
	base context.Context
	deps Deps
	// Как часто продлеваем сессии
	refreshInterval time.Duration

	mu      sync.Mutex
	clients map[int64]*Client
}

func NewRegistry(ctx context.Context, deps Deps, refreshInterval time.Duration) *Registry {
	return &Registry{
		base:            ctx,
		deps:            deps,
		refreshInterval: refreshInterval,
		clients:         make(map[int64]*Client),
	}
}

// Get отдает клиента чата. Новый клиент сразу сам проверяет, есть ли у чата сессия
func (r *Registry) Get(ctx context.Context, chatID int64) *Client {
	r.mu.Lock()
	c, ok := r.clients[chatID]
	if !ok {
		c = New(r.base, chatID, r.deps)
		r.clients[chatID] = c
	}
	r.mu.Unlock()

	if !ok {
		if err := c.Session.Boot(ctx); err != nil {
			log.Printf("[ERROR] failed to boot client %d: %v", chatID, err)
		}
	}

	return c
}

// Phase - фаза сессии чата (клиент создается, если его еще нет)
func (r *Registry) Phase(ctx context.Context, chatID int64) model.Phase {
	return r.Get(ctx, chatID).Session.Phase()
}

func (r *Registry) snapshot() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	return lo.Values(r.clients)
}

// Start продлевает сессии всех клиентов раз в refreshInterval, пока жив контекст
func (r *Registry) Start(ctx context.Context) error {
	ticker := time.NewTicker(r.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.RefreshAll(ctx)
		}
	}
}

// RefreshAll продлевает сессии. Ошибка одного клиента не мешает остальным
func (r *Registry) RefreshAll(ctx context.Context) {
	for _, c := range r.snapshot() {
		if err := c.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[ERROR] failed to refresh session of chat %d: %v", c.ChatID, err)
		}
	}
}

// Close закрывает всех клиентов
func (r *Registry) Close() {
	for _, c := range r.snapshot() {
		c.Close()
	}
}
