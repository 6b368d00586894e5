package repository

import "context"

// VariantStatus respuesta del catálogo para una variante en una bodega.
type VariantStatus struct {
	Exists bool
	Active bool
}

// CatalogLookup colaborador externo (módulo de productos); el motor de inventario solo lo consulta.
type CatalogLookup interface {
	VariantExists(ctx context.Context, variantID, warehouseID string) (VariantStatus, error)
}
