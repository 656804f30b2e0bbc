package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/Insumos-api/internal/application/dto"
	"github.com/jhoicas/Insumos-api/internal/domain"
	"github.com/jhoicas/Insumos-api/internal/domain/entity"
	"github.com/jhoicas/Insumos-api/internal/domain/inventory"
	"github.com/jhoicas/Insumos-api/internal/domain/repository"
)

// StatementRenderer genera el documento del kardex (PDF).
type StatementRenderer interface {
	RenderStatement(st *dto.ItemStatement) ([]byte, error)
}

// StatementUseCase arma el kardex de un insumo: movimientos en orden y saldo acumulado.
type StatementUseCase struct {
	itemRepo     repository.ItemRepository
	movementRepo repository.MovementRepository
	renderer     StatementRenderer
	now          func() time.Time
}

// NewStatementUseCase construye el caso de uso. renderer puede ser nil si no se exporta PDF.
func NewStatementUseCase(itemRepo repository.ItemRepository, movementRepo repository.MovementRepository, renderer StatementRenderer) *StatementUseCase {
	return &StatementUseCase{itemRepo: itemRepo, movementRepo: movementRepo, renderer: renderer, now: time.Now}
}

// Statement devuelve el kardex del insumo.
func (uc *StatementUseCase) Statement(ctx context.Context, itemID string) (*dto.ItemStatement, error) {
	item, err := uc.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: insumo %s", domain.ErrNotFound, itemID)
	}
	history, err := uc.movementRepo.ListByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	balances := inventory.RunningBalance(history)

	st := &dto.ItemStatement{
		ItemID:            item.ID,
		Code:              item.Code,
		Name:              item.Name,
		CriticalThreshold: item.CriticalThreshold,
		Lines:             make([]dto.StatementLine, 0, len(history)),
		GeneratedAt:       uc.now(),
	}
	for i, m := range history {
		if m.Kind == entity.MovementKindIN {
			st.TotalIn += m.Quantity
		} else {
			st.TotalOut += m.Quantity
		}
		st.Lines = append(st.Lines, dto.StatementLine{
			MovementID: m.ID,
			OccurredAt: m.OccurredAt,
			Kind:       string(m.Kind),
			Quantity:   m.Quantity,
			Balance:    balances[i],
			ActorID:    m.ActorID,
		})
	}
	st.FinalBalance = st.TotalIn - st.TotalOut
	return st, nil
}

// StatementPDF devuelve el kardex renderizado.
func (uc *StatementUseCase) StatementPDF(ctx context.Context, itemID string) ([]byte, error) {
	if uc.renderer == nil {
		return nil, fmt.Errorf("renderer de kardex no configurado")
	}
	st, err := uc.Statement(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return uc.renderer.RenderStatement(st)
}
