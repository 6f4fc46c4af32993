package library

import (
	"log"
	"sync"
	"sync/atomic"
)

// Indicator - видимый признак того, что сохранение идет (например заблокированная кнопка)
type Indicator interface {
	Busy() bool
	SetBusy(busy bool)
}

// BusyIndicator - простая реализация Indicator в памяти
type BusyIndicator struct {
	busy atomic.Bool
}

func (b *BusyIndicator) Busy() bool {
	return b.busy.Load()
}

func (b *BusyIndicator) SetBusy(busy bool) {
	b.busy.Store(busy)
}

// saveGuard не дает отправить форму второй раз, пока первое сохранение в полете.
// Это не мьютекс, а флаг повторного входа только для создания статьи
type saveGuard struct {
	mu        sync.Mutex
	saving    bool
	indicator Indicator
}

func newSaveGuard(indicator Indicator) *saveGuard {
	if indicator == nil {
		indicator = &BusyIndicator{}
	}

	return &saveGuard{indicator: indicator}
}

// enter переводит guard в saving. false - сохранение действительно идет.
// Если флаг поднят, а индикатор его не подтверждает, флаг остался от прерванного
// сохранения: сбрасываем его и пускаем новое
func (g *saveGuard) enter() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.saving {
		if g.indicator.Busy() {
			return false
		}

		log.Printf("[WARN] stale save flag without busy indicator, recovering")
		g.saving = false
	}

	g.saving = true
	g.indicator.SetBusy(true)

	return true
}

// leave всегда возвращает guard в idle
func (g *saveGuard) leave() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.saving = false
	g.indicator.SetBusy(false)
}

func (g *saveGuard) Saving() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.saving
}
