package engine

import (
	"sort"
	"sync"

	"github.com/alejandrodnm/updownbot/internal/domain"
)

// Ledger registra las posiciones despachadas. Solo se añaden; Close marca
// una posición como cerrada y SetStatus actualiza el estado de su orden.
type Ledger struct {
	mu        sync.Mutex
	positions map[domain.PositionKey]*domain.Position
	order     []domain.PositionKey
	active    map[activeKey]int // posiciones no cerradas por (periodo, tipo)
}

type activeKey struct {
	period int64
	tt     domain.TokenType
}

// NewLedger crea un ledger vacío.
func NewLedger() *Ledger {
	return &Ledger{
		positions: make(map[domain.PositionKey]*domain.Position),
		active:    make(map[activeKey]int),
	}
}

// HasActivePosition indica si hay una posición no cerrada del tipo dado en el periodo.
func (l *Ledger) HasActivePosition(period int64, tt domain.TokenType) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active[activeKey{period: period, tt: tt}] > 0
}

// Record añade la posición. Si ya existe una para la misma clave se
// conserva la original y se devuelve esa.
func (l *Ledger) Record(p domain.Position) domain.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := p.Key()
	if existing, ok := l.positions[key]; ok {
		return *existing
	}
	l.positions[key] = &p
	l.order = append(l.order, key)
	if !p.Closed {
		l.active[activeKey{period: p.Period, tt: p.TokenType}]++
	}
	return p
}

// Close marca la posición como cerrada. Devuelve false si no existe.
func (l *Ledger) Close(key domain.PositionKey) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.positions[key]
	if !ok {
		return false
	}
	if !p.Closed {
		p.Closed = true
		ak := activeKey{period: p.Period, tt: p.TokenType}
		if l.active[ak]--; l.active[ak] <= 0 {
			delete(l.active, ak)
		}
	}
	return true
}

// SetStatus cambia el estado de la orden de una posición.
func (l *Ledger) SetStatus(key domain.PositionKey, status domain.PositionStatus) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.positions[key]
	if !ok {
		return false
	}
	p.Status = status
	return true
}

// Get devuelve la posición de la clave.
func (l *Ledger) Get(key domain.PositionKey) (domain.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.positions[key]
	if !ok {
		return domain.Position{}, false
	}
	return *p, true
}

// Positions devuelve las posiciones del periodo en orden de registro.
func (l *Ledger) Positions(period int64) []domain.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.Position
	for _, key := range l.order {
		if key.Period == period {
			out = append(out, *l.positions[key])
		}
	}
	return out
}

// Open devuelve las posiciones no cerradas con el estado dado, por periodo.
func (l *Ledger) Open(status domain.PositionStatus) []domain.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.Position
	for _, key := range l.order {
		if p := l.positions[key]; !p.Closed && p.Status == status {
			out = append(out, *p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

// Len devuelve el número total de posiciones.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.positions)
}
