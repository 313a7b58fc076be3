package domain

import (
	"fmt"
	"time"
)

// Market representa el mercado up/down de un asset para un periodo.
// Se crea al resolverlo y no se modifica después: cada periodo trae uno nuevo.
type Market struct {
	ConditionID string
	Slug        string
	Question    string
	EndDate     time.Time
	Tokens      []Token
	Active      bool
	Closed      bool
	NegRisk     bool
	// Placeholder marca el mercado sintético de un asset deshabilitado
	// o que no se pudo resolver.
	Placeholder bool
}

// Token es uno de los lados del mercado.
type Token struct {
	TokenID string
	Outcome string // "Up" | "Down" tal como lo devuelve Gamma
}

// Tradable indica si el mercado admite órdenes: real, activo y no cerrado.
func (m Market) Tradable() bool {
	return !m.Placeholder && m.Active && !m.Closed
}

// TokenFor devuelve el token del outcome dado, si existe.
func (m Market) TokenFor(o Outcome) (Token, bool) {
	for _, t := range m.Tokens {
		if out, ok := ParseOutcome(t.Outcome); ok && out == o {
			return t, true
		}
	}
	return Token{}, false
}

// TokenIDs devuelve los ids de todos los tokens del mercado.
func (m Market) TokenIDs() []string {
	ids := make([]string, 0, len(m.Tokens))
	for _, t := range m.Tokens {
		if t.TokenID != "" {
			ids = append(ids, t.TokenID)
		}
	}
	return ids
}

// PlaceholderMarket construye el mercado permanentemente inactivo que
// sustituye a un asset deshabilitado, para que el resto del pipeline
// trate a todos los assets igual.
func PlaceholderMarket(a Asset) Market {
	return Market{
		ConditionID: fmt.Sprintf("dummy_%s_fallback", a.Name()),
		Slug:        fmt.Sprintf("%s-updown-15m-fallback", a.Name()),
		Question:    a.Label() + " Trading Disabled",
		Active:      false,
		Closed:      true,
		Placeholder: true,
	}
}

// TruncateQuestion devuelve la pregunta truncada a maxLen caracteres.
// Si la pregunta está vacía usa el slug como fallback.
func TruncateQuestion(question, slug string, maxLen int) string {
	q := question
	if q == "" {
		q = slug
	}
	if len(q) > maxLen {
		q = q[:maxLen-3] + "..."
	}
	return q
}
