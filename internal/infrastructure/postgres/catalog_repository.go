package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

var _ repository.CatalogLookup = (*CatalogRepo)(nil)

// CatalogRepo consulta variantes y bodegas del catálogo. El motor de inventario no las modifica.
type CatalogRepo struct {
	q Querier
}

// NewCatalogRepository construye el adaptador.
func NewCatalogRepository(q Querier) *CatalogRepo {
	return &CatalogRepo{q: q}
}

// VariantExists la variante existe si está en el catálogo y tiene fila de stock en la bodega.
// Activa si la variante y la bodega lo están.
func (r *CatalogRepo) VariantExists(ctx context.Context, variantID, warehouseID string) (repository.VariantStatus, error) {
	query := `
		SELECT v.is_active AND w.is_active
		FROM product_variants v
		JOIN stock_records s ON s.variant_id = v.id AND s.warehouse_id = $2
		JOIN warehouses w ON w.id = s.warehouse_id
		WHERE v.id = $1`
	var active bool
	err := r.q.QueryRow(ctx, query, variantID, warehouseID).Scan(&active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.VariantStatus{}, nil
		}
		return repository.VariantStatus{}, mapError("variant exists", err)
	}
	return repository.VariantStatus{Exists: true, Active: active}, nil
}

// UpsertWarehouse registra o renombra una bodega (carga inicial).
func (r *CatalogRepo) UpsertWarehouse(ctx context.Context, id, name string) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO warehouses (id, name, is_active) VALUES ($1, $2, true)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`, id, name)
	return mapError("upsert warehouse", err)
}

// UpsertVariant registra una variante con su producto (carga inicial, agrupación por producto).
func (r *CatalogRepo) UpsertVariant(ctx context.Context, variantID, productID, sku string, active bool) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO product_variants (id, product_id, sku, is_active) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET product_id = EXCLUDED.product_id, sku = EXCLUDED.sku, is_active = EXCLUDED.is_active`,
		variantID, productID, sku, active)
	return mapError("upsert variant", err)
}
