package domain

// OrderKind distingue órdenes límite de órdenes a mercado.
type OrderKind string

const (
	OrderKindLimit  OrderKind = "limit"
	OrderKindMarket OrderKind = "market"
)

// BuyOpportunity es una orden candidata producida en un tick.
// Se consume en el mismo tick y no se persiste.
type BuyOpportunity struct {
	TokenID     string
	ConditionID string
	TokenType   TokenType
	Price       float64 // precio límite configurado
	Bid         float64 // mejor bid observado, solo diagnóstico
	Period      int64
	Elapsed     int64
	Remaining   int64
	Kind        OrderKind
	NegRisk     bool
}

// Key devuelve la clave del ledger para esta oportunidad.
func (o BuyOpportunity) Key() PositionKey {
	return PositionKey{Period: o.Period, TokenID: o.TokenID}
}
