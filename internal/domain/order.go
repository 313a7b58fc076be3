package domain

// OrderSide is the CLOB side of an order.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// TimeInForce is the CLOB order type.
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceFOK TimeInForce = "FOK"
)

// PlaceOrderRequest is sent to the CLOB order submitter.
// Price and Size are already rounded to the venue tick; Size is in shares.
type PlaceOrderRequest struct {
	TokenID     string
	ConditionID string
	Price       float64
	Size        float64
	Side        OrderSide
	TimeInForce TimeInForce
	NegRisk     bool
}

// PlacedOrder is the CLOB acknowledgment of a submitted order.
type PlacedOrder struct {
	CLOBOrderID string
	Status      string
	TakenAmount float64 // immediately matched (taker portion)
	MadeAmount  float64 // resting in book (maker portion)
}
