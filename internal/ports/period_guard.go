package ports

import "context"

// PeriodGuard reclama un periodo entre varias instancias del bot.
type PeriodGuard interface {
	// Claim devuelve true si esta instancia es la primera en reclamar el periodo.
	Claim(ctx context.Context, period int64) (bool, error)
}
