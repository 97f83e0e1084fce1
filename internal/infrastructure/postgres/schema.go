package postgres

import (
	"context"
	"fmt"
)

// schema DDL idempotente; se ejecuta sentencia por sentencia al arrancar con DB_AUTO_MIGRATE.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS inventory_items (
		id                TEXT PRIMARY KEY,
		sku               TEXT NOT NULL DEFAULT '',
		name              TEXT NOT NULL,
		category          TEXT NOT NULL DEFAULT '',
		quantity_on_hand  BIGINT NOT NULL DEFAULT 0 CHECK (quantity_on_hand >= 0),
		reorder_threshold BIGINT NOT NULL DEFAULT 0 CHECK (reorder_threshold >= 0),
		unit_cost         NUMERIC(14,4) NOT NULL DEFAULT 0,
		expiry_date       DATE,
		status            TEXT NOT NULL CHECK (status IN ('available','low_stock','depleted','expired')),
		version           BIGINT NOT NULL DEFAULT 1,
		retired_at        TIMESTAMPTZ,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS inventory_items_sku_uq ON inventory_items (sku) WHERE sku <> ''`,
	`CREATE INDEX IF NOT EXISTS inventory_items_category_idx ON inventory_items (category, id)`,

	`CREATE TABLE IF NOT EXISTS purchase_orders (
		id          TEXT PRIMARY KEY,
		supplier    TEXT NOT NULL,
		status      TEXT NOT NULL CHECK (status IN ('pending','completed')),
		note        TEXT NOT NULL DEFAULT '',
		received_at TIMESTAMPTZ,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS inventory_movements (
		id              BIGSERIAL PRIMARY KEY,
		item_id         TEXT NOT NULL REFERENCES inventory_items (id),
		kind            TEXT NOT NULL CHECK (kind IN ('inbound_purchase','outbound_dispense','outbound_adjustment','outbound_spoilage')),
		quantity        BIGINT NOT NULL CHECK (quantity > 0),
		reference_kind  TEXT NOT NULL DEFAULT '',
		reference_id    TEXT NOT NULL DEFAULT '',
		idempotency_key TEXT,
		note            TEXT NOT NULL DEFAULT '',
		created_by      TEXT NOT NULL DEFAULT '',
		occurred_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + idempotencyIndex + `
		ON inventory_movements (idempotency_key) WHERE idempotency_key IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS inventory_movements_item_idx ON inventory_movements (item_id, occurred_at, id)`,

	// El libro mayor es de solo inserción también a nivel de BD
	`CREATE OR REPLACE FUNCTION inventory_movements_append_only() RETURNS trigger AS $$
	BEGIN
		RAISE EXCEPTION 'inventory_movements es de solo inserción';
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS inventory_movements_no_mutation ON inventory_movements`,
	`CREATE TRIGGER inventory_movements_no_mutation
		BEFORE UPDATE OR DELETE ON inventory_movements
		FOR EACH ROW EXECUTE FUNCTION inventory_movements_append_only()`,
}

// Migrate crea tablas, índices y el trigger del libro mayor si no existen.
func Migrate(ctx context.Context, q Querier) error {
	for i, stmt := range schema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return classify(fmt.Sprintf("migrate statement %d", i+1), err)
		}
	}
	return nil
}
