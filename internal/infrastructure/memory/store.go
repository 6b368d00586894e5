// Package memory implementa los puertos de persistencia en memoria (STORE_DRIVER=memory y tests).
// Las transacciones se serializan con un único candado: una tx ve el estado confirmado más sus propios
// cambios y los publica todos juntos al confirmar, o ninguno.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/stock-ledger-api/internal/application/fulfillment"
	"github.com/jhoicas/stock-ledger-api/internal/application/inventory"
	"github.com/jhoicas/stock-ledger-api/internal/domain"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

var (
	_ inventory.TxRunner        = (*Store)(nil)
	_ fulfillment.OrderTxRunner = (*Store)(nil)
)

type variantInfo struct {
	productID string
	active    bool
}

// Store estado confirmado más el candado de transacciones.
type Store struct {
	txLock chan struct{}

	mu         sync.RWMutex
	stock      map[entity.StockKey]*entity.StockRecord
	movements  []*entity.MovementEntry
	orders     map[string]*entity.Order
	variants   map[string]variantInfo
	warehouses map[string]bool
	nextID     int64

	openCatalog bool

	hookMu       sync.Mutex
	beforeCommit func() error
}

// NewStore construye un store vacío.
func NewStore() *Store {
	return &Store{
		txLock:     make(chan struct{}, 1),
		stock:      make(map[entity.StockKey]*entity.StockRecord),
		orders:     make(map[string]*entity.Order),
		variants:   make(map[string]variantInfo),
		warehouses: make(map[string]bool),
	}
}

// SetBeforeCommit instala un hook que corre justo antes de publicar una tx; si retorna error la tx
// se descarta como si el commit hubiera fallado. nil lo quita.
func (s *Store) SetBeforeCommit(fn func() error) {
	s.hookMu.Lock()
	s.beforeCommit = fn
	s.hookMu.Unlock()
}

// Run ejecuta fn en una transacción con repos de stock y ledger.
func (s *Store) Run(ctx context.Context, fn func(
	stockRepo repository.StockRecordRepository,
	movRepo repository.MovementRepository,
) error) error {
	return s.inTx(ctx, func(tx *txState) error {
		return fn(&StockRecordRepo{s: s, tx: tx}, &MovementRepo{s: s, tx: tx})
	})
}

// RunOrder ejecuta fn en una transacción con repos de stock, ledger y pedidos.
func (s *Store) RunOrder(ctx context.Context, fn func(
	stockRepo repository.StockRecordRepository,
	movRepo repository.MovementRepository,
	orderRepo repository.OrderRepository,
) error) error {
	return s.inTx(ctx, func(tx *txState) error {
		return fn(&StockRecordRepo{s: s, tx: tx}, &MovementRepo{s: s, tx: tx}, &OrderRepo{s: s, tx: tx})
	})
}

// StockRecords repositorio fuera de transacción (lecturas confirmadas, escrituras autocommit).
func (s *Store) StockRecords() *StockRecordRepo { return &StockRecordRepo{s: s} }

// Movements repositorio del ledger fuera de transacción.
func (s *Store) Movements() *MovementRepo { return &MovementRepo{s: s} }

// Orders repositorio de pedidos fuera de transacción.
func (s *Store) Orders() *OrderRepo { return &OrderRepo{s: s} }

// Reports repositorio de agregaciones.
func (s *Store) Reports() *ReportRepo { return &ReportRepo{s: s} }

// Catalog consulta de variantes registradas.
func (s *Store) Catalog() *CatalogRepo { return &CatalogRepo{s: s} }

// OpenCatalog acepta variantes y bodegas no registradas (demo sin módulo de productos).
func (s *Store) OpenCatalog() {
	s.mu.Lock()
	s.openCatalog = true
	s.mu.Unlock()
}

// RegisterWarehouse registra una bodega en el catálogo.
func (s *Store) RegisterWarehouse(id string, active bool) {
	s.mu.Lock()
	s.warehouses[id] = active
	s.mu.Unlock()
}

// RegisterVariant registra una variante y el producto al que pertenece.
func (s *Store) RegisterVariant(variantID, productID string, active bool) {
	s.mu.Lock()
	s.variants[variantID] = variantInfo{productID: productID, active: active}
	s.mu.Unlock()
}

// txState cambios pendientes de una transacción.
type txState struct {
	stock     map[entity.StockKey]*entity.StockRecord
	movements []*entity.MovementEntry
	orders    map[string]*entity.Order
	nextID    int64
}

func (s *Store) inTx(ctx context.Context, fn func(tx *txState) error) error {
	select {
	case s.txLock <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("begin transaction: %w: %v", domain.ErrTransientStore, ctx.Err())
	}
	defer func() { <-s.txLock }()

	s.mu.RLock()
	tx := &txState{
		stock:  make(map[entity.StockKey]*entity.StockRecord),
		orders: make(map[string]*entity.Order),
		nextID: s.nextID,
	}
	s.mu.RUnlock()

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit transaction: %w: %v", domain.ErrTransientStore, err)
	}
	s.hookMu.Lock()
	hook := s.beforeCommit
	s.hookMu.Unlock()
	if hook != nil {
		if err := hook(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
	}
	s.commit(tx)
	return nil
}

func (s *Store) commit(tx *txState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, rec := range tx.stock {
		s.stock[k] = rec
	}
	s.movements = append(s.movements, tx.movements...)
	for id, o := range tx.orders {
		s.orders[id] = o
	}
	s.nextID = tx.nextID
}

// autocommit envuelve una escritura fuera de transacción.
func (s *Store) autocommit(ctx context.Context, tx *txState, fn func(tx *txState) error) error {
	if tx != nil {
		return fn(tx)
	}
	return s.inTx(ctx, fn)
}

// stockFor devuelve una copia de la fila vista por la tx (o la confirmada si tx es nil).
func (s *Store) stockFor(tx *txState, key entity.StockKey) *entity.StockRecord {
	if tx != nil {
		if rec, ok := tx.stock[key]; ok {
			return cloneStock(rec)
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.stock[key]; ok {
		return cloneStock(rec)
	}
	return nil
}

func (s *Store) orderFor(tx *txState, id string) *entity.Order {
	if tx != nil {
		if o, ok := tx.orders[id]; ok {
			return cloneOrder(o)
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if o, ok := s.orders[id]; ok {
		return cloneOrder(o)
	}
	return nil
}

// committedMovements copia de los movimientos confirmados más los de la tx.
func (s *Store) committedMovements(tx *txState) []*entity.MovementEntry {
	s.mu.RLock()
	out := make([]*entity.MovementEntry, 0, len(s.movements))
	out = append(out, s.movements...)
	s.mu.RUnlock()
	if tx != nil {
		out = append(out, tx.movements...)
	}
	return out
}

func (s *Store) stockSnapshot(tx *txState) []*entity.StockRecord {
	s.mu.RLock()
	merged := make(map[entity.StockKey]*entity.StockRecord, len(s.stock))
	for k, v := range s.stock {
		merged[k] = v
	}
	s.mu.RUnlock()
	if tx != nil {
		for k, v := range tx.stock {
			merged[k] = v
		}
	}
	out := make([]*entity.StockRecord, 0, len(merged))
	for _, v := range merged {
		out = append(out, cloneStock(v))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key().Less(out[j].Key())
	})
	return out
}

func cloneStock(r *entity.StockRecord) *entity.StockRecord {
	c := *r
	return &c
}

func cloneMovement(m *entity.MovementEntry) *entity.MovementEntry {
	c := *m
	return &c
}

func cloneOrder(o *entity.Order) *entity.Order {
	c := *o
	c.Lines = make([]*entity.OrderLine, 0, len(o.Lines))
	for _, l := range o.Lines {
		lc := *l
		c.Lines = append(c.Lines, &lc)
	}
	return &c
}

func now() time.Time { return time.Now().UTC() }
