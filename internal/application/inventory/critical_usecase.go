package inventory

import (
	"context"
	"sort"

	"github.com/jhoicas/Insumos-api/internal/application/dto"
	"github.com/jhoicas/Insumos-api/internal/domain/inventory"
	"github.com/jhoicas/Insumos-api/internal/domain/repository"
)

const criticalScanBatch = 200

// StockReader lectura del stock derivado.
type StockReader interface {
	CurrentStock(ctx context.Context, itemID string) (int64, error)
}

// CriticalListUseCase lista los insumos cuyo stock está en la franja crítica.
type CriticalListUseCase struct {
	itemRepo repository.ItemRepository
	stock    StockReader
}

// NewCriticalListUseCase construye el caso de uso.
func NewCriticalListUseCase(itemRepo repository.ItemRepository, stock StockReader) *CriticalListUseCase {
	return &CriticalListUseCase{itemRepo: itemRepo, stock: stock}
}

// List devuelve los insumos con 0 < stock < umbral, priorizados por déficit relativo.
// La cantidad sugerida lleva el stock a 1.5 veces el umbral.
func (uc *CriticalListUseCase) List(ctx context.Context) ([]dto.CriticalItemDTO, error) {
	out := make([]dto.CriticalItemDTO, 0)
	for offset := 0; ; offset += criticalScanBatch {
		items, err := uc.itemRepo.List(ctx, criticalScanBatch, offset)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			qty, err := uc.stock.CurrentStock(ctx, it.ID)
			if err != nil {
				return nil, err
			}
			if !inventory.ShouldAlert(qty, it.CriticalThreshold) {
				continue
			}
			ideal := (it.CriticalThreshold*3 + 1) / 2 // ceil(umbral * 1.5)
			out = append(out, dto.CriticalItemDTO{
				ItemID:            it.ID,
				Code:              it.Code,
				Name:              it.Name,
				Stock:             qty,
				CriticalThreshold: it.CriticalThreshold,
				Deficit:           it.CriticalThreshold - qty,
				SuggestedOrderQty: ideal - qty,
			})
		}
		if len(items) < criticalScanBatch {
			break
		}
	}

	// Primero el mayor déficit relativo (stock/umbral menor), luego el mayor déficit absoluto.
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		ra := a.Stock * b.CriticalThreshold
		rb := b.Stock * a.CriticalThreshold
		if ra != rb {
			return ra < rb
		}
		if a.Deficit != b.Deficit {
			return a.Deficit > b.Deficit
		}
		return a.Code < b.Code
	})
	for i := range out {
		out[i].Priority = i + 1
	}
	return out, nil
}
