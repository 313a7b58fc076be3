package domain

import (
	"fmt"
	"strings"
)

// Asset identifica el subyacente de un mercado up/down de 15 minutos.
type Asset string

const (
	AssetBTC Asset = "BTC"
	AssetETH Asset = "ETH"
	AssetSOL Asset = "SOL"
	AssetXRP Asset = "XRP"
)

// Assets devuelve los assets en el orden de presentación (snapshot, oportunidades).
func Assets() []Asset {
	return []Asset{AssetBTC, AssetETH, AssetSOL, AssetXRP}
}

// Name es el nombre en minúsculas usado en slugs y placeholders.
// SOL usa "solana" porque así aparece en el slug principal.
func (a Asset) Name() string {
	if a == AssetSOL {
		return "solana"
	}
	return strings.ToLower(string(a))
}

// Label es el nombre legible para logs.
func (a Asset) Label() string {
	if a == AssetSOL {
		return "Solana"
	}
	return string(a)
}

// ParseAsset acepta "btc", "ETH", "sol", "solana", "xrp".
func ParseAsset(s string) (Asset, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "btc", "bitcoin":
		return AssetBTC, nil
	case "eth", "ethereum":
		return AssetETH, nil
	case "sol", "solana":
		return AssetSOL, nil
	case "xrp":
		return AssetXRP, nil
	}
	return "", fmt.Errorf("domain.ParseAsset: unknown asset %q", s)
}

// Outcome es el lado de un mercado up/down.
type Outcome string

const (
	OutcomeUp   Outcome = "Up"
	OutcomeDown Outcome = "Down"
)

// ParseOutcome normaliza la etiqueta que devuelve Gamma ("Up", "DOWN", "yes"...).
// Yes/No se aceptan como alias de Up/Down.
func ParseOutcome(s string) (Outcome, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "yes":
		return OutcomeUp, true
	case "down", "no":
		return OutcomeDown, true
	}
	return "", false
}

// TokenType es la etiqueta (asset, outcome) de un token, p.ej. BTC-Up.
type TokenType struct {
	Asset   Asset
	Outcome Outcome
}

func (t TokenType) String() string {
	return string(t.Asset) + "-" + string(t.Outcome)
}
