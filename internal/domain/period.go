package domain

import (
	"fmt"
	"time"
)

// PeriodLength es la duración de cada mercado up/down, común a todos los assets.
const PeriodLength int64 = 900

// PeriodStart devuelve el inicio canónico del periodo que contiene now (unix s).
func PeriodStart(now time.Time) int64 {
	ts := now.Unix()
	return ts - mod(ts, PeriodLength)
}

// Elapsed devuelve los segundos transcurridos desde el inicio del periodo actual.
func Elapsed(now time.Time) int64 {
	return now.Unix() - PeriodStart(now)
}

// Remaining devuelve los segundos que quedan del periodo actual.
func Remaining(now time.Time) int64 {
	return RemainingFor(PeriodStart(now), now)
}

// RemainingFor devuelve los segundos que quedan del periodo que empieza en
// period, acotado a [0, PeriodLength]. Un periodo ya terminado devuelve 0.
func RemainingFor(period int64, now time.Time) int64 {
	r := period + PeriodLength - now.Unix()
	switch {
	case r < 0:
		return 0
	case r > PeriodLength:
		return PeriodLength
	}
	return r
}

// ElapsedFor devuelve los segundos transcurridos desde period, nunca negativo.
func ElapsedFor(period int64, now time.Time) int64 {
	e := now.Unix() - period
	if e < 0 {
		return 0
	}
	return e
}

// NextBoundary devuelve el instante en que empieza el siguiente periodo.
func NextBoundary(now time.Time) time.Time {
	return time.Unix(PeriodStart(now)+PeriodLength, 0)
}

// Slug construye el slug de Gamma de un mercado up/down de 15 minutos.
func Slug(prefix string, period int64) string {
	return fmt.Sprintf("%s-updown-15m-%d", prefix, period)
}

// mod es el módulo euclídeo, para que timestamps negativos también redondeen hacia abajo.
func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
