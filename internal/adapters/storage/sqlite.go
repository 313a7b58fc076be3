package storage

// sqlite.go: diario de despachos.
//
// Tablas:
//   - `dispatched_orders`: una fila por posición despachada (simulada o real).
//   - `market_starts`: qué mercado se usó por (periodo, asset).
//
// Los tiempos se guardan como unix millis para no depender del formato
// de DATETIME del driver.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/updownbot/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS dispatched_orders (
    id            TEXT PRIMARY KEY,
    period        INTEGER NOT NULL,
    token_id      TEXT    NOT NULL,
    condition_id  TEXT    NOT NULL,
    asset         TEXT    NOT NULL,
    outcome       TEXT    NOT NULL,
    price         REAL    NOT NULL,
    size          REAL    NOT NULL,
    order_id      TEXT    NOT NULL DEFAULT '',
    status        TEXT    NOT NULL,
    simulated     INTEGER NOT NULL DEFAULT 0,
    placed_at     INTEGER NOT NULL,
    updated_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS market_starts (
    period        INTEGER NOT NULL,
    asset         TEXT    NOT NULL,
    condition_id  TEXT    NOT NULL,
    slug          TEXT    NOT NULL,
    placeholder   INTEGER NOT NULL DEFAULT 0,
    resolved_at   INTEGER NOT NULL,
    PRIMARY KEY (period, asset)
);

CREATE INDEX IF NOT EXISTS idx_orders_period ON dispatched_orders(period DESC);
CREATE INDEX IF NOT EXISTS idx_orders_placed ON dispatched_orders(placed_at DESC);
`

const retention = 30 * 24 * time.Hour

// SQLiteStorage implementa ports.Journal usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada,
// aplica el schema y limpia filas de más de 30 días.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveOrder inserta (o reemplaza) la fila de una posición.
func (s *SQLiteStorage) SaveOrder(ctx context.Context, p domain.Position) error {
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO dispatched_orders
		  (id, period, token_id, condition_id, asset, outcome, price, size,
		   order_id, status, simulated, placed_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Period, p.TokenID, p.ConditionID,
		string(p.TokenType.Asset), string(p.TokenType.Outcome),
		p.Price, p.Size, p.OrderID, string(p.Status), boolToInt(p.Simulated),
		p.PlacedAt.UnixMilli(), now,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveOrder %s: %w", p.ID, err)
	}
	return nil
}

// UpdateOrderStatus cambia solo el status de una posición ya guardada.
func (s *SQLiteStorage) UpdateOrderStatus(ctx context.Context, positionID string, status domain.PositionStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE dispatched_orders SET status=?, updated_at=? WHERE id=?`,
		string(status), time.Now().UnixMilli(), positionID)
	if err != nil {
		return fmt.Errorf("storage.UpdateOrderStatus %s: %w", positionID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage.UpdateOrderStatus %s: %w", positionID, sql.ErrNoRows)
	}
	return nil
}

// RecordMarketStart guarda los mercados resueltos de un periodo.
// Reescribir el mismo (periodo, asset) actualiza la fila.
func (s *SQLiteStorage) RecordMarketStart(ctx context.Context, starts []domain.MarketStart) error {
	if len(starts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.RecordMarketStart: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO market_starts (period, asset, condition_id, slug, placeholder, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(period, asset) DO UPDATE SET
			condition_id = excluded.condition_id,
			slug         = excluded.slug,
			placeholder  = excluded.placeholder,
			resolved_at  = excluded.resolved_at
	`)
	if err != nil {
		return fmt.Errorf("storage.RecordMarketStart: prepare: %w", err)
	}
	defer stmt.Close()

	for _, ms := range starts {
		if _, err := stmt.ExecContext(ctx,
			ms.Period, string(ms.Asset), ms.ConditionID, ms.Slug,
			boolToInt(ms.Placeholder), ms.ResolvedAt.UnixMilli(),
		); err != nil {
			return fmt.Errorf("storage.RecordMarketStart %d/%s: %w", ms.Period, ms.Asset, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.RecordMarketStart: commit: %w", err)
	}
	return nil
}

// RecentOrders devuelve las últimas limit posiciones, la más reciente primero.
func (s *SQLiteStorage) RecentOrders(ctx context.Context, limit int) ([]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, period, token_id, condition_id, asset, outcome, price, size,
		       order_id, status, simulated, placed_at
		FROM dispatched_orders
		ORDER BY placed_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.RecentOrders: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Position
	for rows.Next() {
		var p domain.Position
		var asset, outcome, status string
		var simulated int
		var placedAt int64
		if err := rows.Scan(
			&p.ID, &p.Period, &p.TokenID, &p.ConditionID, &asset, &outcome,
			&p.Price, &p.Size, &p.OrderID, &status, &simulated, &placedAt,
		); err != nil {
			return nil, fmt.Errorf("storage.RecentOrders: scan row: %w", err)
		}
		p.TokenType = domain.TokenType{Asset: domain.Asset(asset), Outcome: domain.Outcome(outcome)}
		p.Status = domain.PositionStatus(status)
		p.Simulated = simulated == 1
		p.PlacedAt = time.UnixMilli(placedAt).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarketStarts devuelve los mercados resueltos de los últimos periods periodos.
func (s *SQLiteStorage) MarketStarts(ctx context.Context, periods int) ([]domain.MarketStart, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT period, asset, condition_id, slug, placeholder, resolved_at
		FROM market_starts
		WHERE period IN (SELECT DISTINCT period FROM market_starts ORDER BY period DESC LIMIT ?)
		ORDER BY period DESC, asset`, periods)
	if err != nil {
		return nil, fmt.Errorf("storage.MarketStarts: query: %w", err)
	}
	defer rows.Close()

	var out []domain.MarketStart
	for rows.Next() {
		var ms domain.MarketStart
		var asset string
		var placeholder int
		var resolvedAt int64
		if err := rows.Scan(&ms.Period, &asset, &ms.ConditionID, &ms.Slug, &placeholder, &resolvedAt); err != nil {
			return nil, fmt.Errorf("storage.MarketStarts: scan row: %w", err)
		}
		ms.Asset = domain.Asset(asset)
		ms.Placeholder = placeholder == 1
		ms.ResolvedAt = time.UnixMilli(resolvedAt).UTC()
		out = append(out, ms)
	}
	return out, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld elimina datos antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().Add(-retention)
	s.db.ExecContext(ctx, `DELETE FROM dispatched_orders WHERE placed_at < ?`, cutoff.UnixMilli())
	s.db.ExecContext(ctx, `DELETE FROM market_starts WHERE period < ?`, cutoff.Unix())
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
