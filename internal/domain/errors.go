package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMarketNotFound indica que no hay mercado aceptable para un slug o asset.
	ErrMarketNotFound = errors.New("market not found")

	// ErrMissingCredentials indica que el modo live no tiene clave privada.
	ErrMissingCredentials = errors.New("missing signing credentials")

	// ErrQuoteUnavailable indica que no se pudo leer el book de un token.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrDuplicateMarket indica que dos assets resolvieron al mismo condition id.
	ErrDuplicateMarket = errors.New("duplicate market across assets")
)

// MarketNotFoundError detalla el asset y los prefijos probados.
type MarketNotFoundError struct {
	Asset    Asset
	Prefixes []string
}

func (e *MarketNotFoundError) Error() string {
	return fmt.Sprintf("could not find active %s 15-minute up/down market (tried prefixes: %s)",
		e.Asset.Label(), strings.Join(e.Prefixes, ", "))
}

func (e *MarketNotFoundError) Unwrap() error {
	return ErrMarketNotFound
}
