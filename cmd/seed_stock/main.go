// seed_stock carga el stock inicial desde un CSV exportado del sistema anterior.
//
// Uso: go run ./cmd/seed_stock --file stock.csv [--charset iso-8859-1] [--dry-run]
//
// Columnas: variant_id,product_id,sku,warehouse_id,warehouse_name,quantity,minimum_stock,unit_cost
// Cada fila crea la StockRecord y, si quantity > 0, un movimiento initial_stock con referencia "import".
// Las parejas que ya existen se omiten; volver a correr el archivo no duplica stock.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/stock-ledger-api/internal/application/inventory"
	"github.com/jhoicas/stock-ledger-api/internal/domain"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger-api/pkg/config"
	"github.com/jhoicas/stock-ledger-api/pkg/logger"
)

type seedRow struct {
	line          int
	variantID     string
	productID     string
	sku           string
	warehouseID   string
	warehouseName string
	quantity      int64
	minimumStock  int64
	unitCost      *decimal.Decimal
}

func main() {
	file := pflag.String("file", "stock.csv", "ruta del CSV")
	charset := pflag.String("charset", "utf-8", "codificación del archivo (utf-8 | iso-8859-1)")
	dryRun := pflag.Bool("dry-run", false, "solo valida el archivo")
	pflag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "seed_stock"})

	rows, err := readRows(*file, *charset)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("leer CSV")
	}
	log.Info().Int("rows", len(rows)).Msg("archivo validado")
	if *dryRun {
		return
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool, log.Zerolog()); err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}

	catalog := postgres.NewCatalogRepository(pool)
	mutator := inventory.NewStockMutator(postgres.NewTxRunner(pool, cfg.DB.LockTimeout), nil, log.Component("seed"),
		inventory.MutatorConfig{MaxConflictRetries: cfg.Stock.MaxConflictRetries})

	var created, skipped int
	for _, r := range rows {
		if err := catalog.UpsertWarehouse(ctx, r.warehouseID, r.warehouseName); err != nil {
			log.Fatal().Err(err).Int("line", r.line).Msg("registrar bodega")
		}
		if err := catalog.UpsertVariant(ctx, r.variantID, r.productID, r.sku, true); err != nil {
			log.Fatal().Err(err).Int("line", r.line).Msg("registrar variante")
		}
		_, err := mutator.InitializeStock(ctx, inventory.InitializeInput{
			VariantID:     r.variantID,
			WarehouseID:   r.warehouseID,
			Quantity:      r.quantity,
			MinimumStock:  r.minimumStock,
			UnitCost:      r.unitCost,
			ReferenceType: entity.ReferenceImport,
			ReferenceID:   *file,
			ActorID:       "seed_stock",
		})
		switch {
		case errors.Is(err, domain.ErrDuplicate):
			skipped++
		case err != nil:
			log.Fatal().Err(err).Int("line", r.line).Msg("inicializar stock")
		default:
			created++
		}
	}
	fmt.Printf("Stock inicial: %d creados, %d omitidos (ya existían)\n", created, skipped)
}

func readRows(path, charset string) ([]seedRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var in io.Reader = f
	switch strings.ToLower(charset) {
	case "iso-8859-1", "iso8859-1", "latin1":
		in = transform.NewReader(f, charmap.ISO8859_1.NewDecoder())
	case "windows-1252", "cp1252":
		in = transform.NewReader(f, charmap.Windows1252.NewDecoder())
	}

	r := csv.NewReader(in)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("encabezado: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"variant_id", "product_id", "warehouse_id", "quantity"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("falta la columna %q", col)
		}
	}
	get := func(rec []string, col string) string {
		if i, ok := idx[col]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	var rows []seedRow
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		row := seedRow{
			line:          line,
			variantID:     get(rec, "variant_id"),
			productID:     get(rec, "product_id"),
			sku:           get(rec, "sku"),
			warehouseID:   get(rec, "warehouse_id"),
			warehouseName: get(rec, "warehouse_name"),
		}
		if row.warehouseName == "" {
			row.warehouseName = row.warehouseID
		}
		if row.quantity, err = parseInt(get(rec, "quantity")); err != nil {
			return nil, fmt.Errorf("línea %d: quantity: %w", line, err)
		}
		if row.minimumStock, err = parseInt(get(rec, "minimum_stock")); err != nil {
			return nil, fmt.Errorf("línea %d: minimum_stock: %w", line, err)
		}
		if s := get(rec, "unit_cost"); s != "" {
			cost, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
			if err != nil {
				return nil, fmt.Errorf("línea %d: unit_cost: %w", line, err)
			}
			row.unitCost = &cost
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
