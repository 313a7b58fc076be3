package domain

import "time"

// PositionStatus es el estado de la orden detrás de una posición.
type PositionStatus string

const (
	PositionSimulated PositionStatus = "SIMULATED" // orden simulada abierta
	PositionOpen      PositionStatus = "OPEN"      // orden real aceptada por el CLOB
	PositionFilled    PositionStatus = "FILLED"
)

// PositionKey es la clave compuesta del ledger.
type PositionKey struct {
	Period  int64
	TokenID string
}

// Position registra que se despachó una compra para (periodo, token).
// Después de crearse solo cambian Closed y Status; nunca se borra.
type Position struct {
	ID          string
	TokenID     string
	ConditionID string
	TokenType   TokenType
	Period      int64
	Price       float64
	Size        float64 // shares
	OrderID     string
	Status      PositionStatus
	Simulated   bool
	Closed      bool
	PlacedAt    time.Time
}

// Key devuelve la clave del ledger de la posición.
func (p Position) Key() PositionKey {
	return PositionKey{Period: p.Period, TokenID: p.TokenID}
}

// Cost devuelve el USDC comprometido por la orden.
func (p Position) Cost() float64 {
	return p.Price * p.Size
}
