// Package redis coordina varias instancias del bot para que solo una
// despache por periodo.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alejandrodnm/updownbot/internal/domain"
)

// Config holds connection parameters for the Redis client.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // namespace de las claves; vacío usa "updown"
}

// PeriodGuard implementa ports.PeriodGuard con SETNX + TTL.
type PeriodGuard struct {
	rdb      *redis.Client
	prefix   string
	instance string
	ttl      time.Duration
}

// New crea el guard, hace ping para verificar la conexión y devuelve error
// si Redis no responde.
func New(ctx context.Context, cfg Config) (*PeriodGuard, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis.New: ping %s: %w", cfg.Addr, err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "updown"
	}
	return &PeriodGuard{
		rdb:      rdb,
		prefix:   prefix,
		instance: uuid.NewString(),
		ttl:      2 * time.Duration(domain.PeriodLength) * time.Second,
	}, nil
}

// Claim reserva el periodo para esta instancia. Devuelve false si otra
// instancia ya lo reservó. Reclamar dos veces desde la misma instancia es true.
func (g *PeriodGuard) Claim(ctx context.Context, period int64) (bool, error) {
	key := g.key(period)
	ok, err := g.rdb.SetNX(ctx, key, g.instance, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis.Claim %d: %w", period, err)
	}
	if ok {
		return true, nil
	}

	owner, err := g.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		// expiró entre SETNX y GET
		return g.Claim(ctx, period)
	}
	if err != nil {
		return false, fmt.Errorf("redis.Claim %d: get owner: %w", period, err)
	}
	return owner == g.instance, nil
}

// Instance devuelve el token de esta instancia.
func (g *PeriodGuard) Instance() string {
	return g.instance
}

// Close cierra la conexión.
func (g *PeriodGuard) Close() error {
	return g.rdb.Close()
}

func (g *PeriodGuard) key(period int64) string {
	return g.prefix + ":dispatch:" + strconv.FormatInt(period, 10)
}
