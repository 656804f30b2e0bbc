package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/Insumos-api/internal/application/dto"
	"github.com/jhoicas/Insumos-api/internal/domain"
	"github.com/jhoicas/Insumos-api/internal/domain/entity"
	"github.com/jhoicas/Insumos-api/internal/domain/repository"
)

// MovementUseCase adapta los requests HTTP al motor y resuelve las consultas de movimientos.
type MovementUseCase struct {
	engine       *LedgerEngine
	movementRepo repository.MovementRepository
	itemRepo     repository.ItemRepository
}

// NewMovementUseCase construye el caso de uso.
func NewMovementUseCase(engine *LedgerEngine, movementRepo repository.MovementRepository, itemRepo repository.ItemRepository) *MovementUseCase {
	return &MovementUseCase{engine: engine, movementRepo: movementRepo, itemRepo: itemRepo}
}

// Create registra el movimiento. Si el request no trae actor se usa el usuario autenticado.
func (uc *MovementUseCase) Create(ctx context.Context, userID string, in dto.CreateMovementRequest) (*dto.MovementResponse, error) {
	actor := strings.TrimSpace(in.ActorID)
	if actor == "" {
		actor = userID
	}
	mov, err := uc.engine.CreateMovement(ctx, CreateMovementInput{
		ItemID:     strings.TrimSpace(in.ItemID),
		ActorID:    actor,
		Kind:       in.Kind,
		Quantity:   in.Quantity,
		OccurredAt: in.OccurredAt,
	})
	if err != nil {
		return nil, err
	}
	return uc.toResponse(ctx, mov), nil
}

// Update edita tipo, cantidad y fecha de un movimiento.
func (uc *MovementUseCase) Update(ctx context.Context, id string, in dto.UpdateMovementRequest) (*dto.MovementResponse, error) {
	mov, err := uc.engine.UpdateMovement(ctx, UpdateMovementInput{
		MovementID: id,
		Kind:       in.Kind,
		Quantity:   in.Quantity,
		OccurredAt: in.OccurredAt,
	})
	if err != nil {
		return nil, err
	}
	return uc.toResponse(ctx, mov), nil
}

// Delete elimina un movimiento.
func (uc *MovementUseCase) Delete(ctx context.Context, id string) error {
	return uc.engine.DeleteMovement(ctx, id)
}

// Get devuelve un movimiento por ID.
func (uc *MovementUseCase) Get(ctx context.Context, id string) (*dto.MovementResponse, error) {
	mov, err := uc.movementRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if mov == nil {
		return nil, fmt.Errorf("%w: movimiento %s", domain.ErrNotFound, id)
	}
	return uc.toResponse(ctx, mov), nil
}

// List lista movimientos filtrados, más recientes primero.
func (uc *MovementUseCase) List(ctx context.Context, in dto.MovementListFilter) (*dto.MovementListResponse, error) {
	in.DefaultPage()
	filter := repository.MovementFilter{
		ItemID: strings.TrimSpace(in.ItemID),
		From:   in.From,
		To:     in.To,
	}
	if in.Kind != "" {
		kind, ok := entity.ParseMovementKind(in.Kind)
		if !ok {
			return nil, fmt.Errorf("%w: tipo de movimiento %q no reconocido", domain.ErrInvalidInput, in.Kind)
		}
		filter.Kind = kind
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, fmt.Errorf("%w: from posterior a to", domain.ErrInvalidInput)
	}

	list, err := uc.movementRepo.List(ctx, filter, in.Limit, in.Offset)
	if err != nil {
		return nil, err
	}
	// Caché local de insumos para no repetir lecturas en la misma página.
	items := make(map[string]*entity.Item)
	out := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		it, ok := items[m.ItemID]
		if !ok {
			it, _ = uc.itemRepo.GetByID(ctx, m.ItemID)
			items[m.ItemID] = it
		}
		out = append(out, toMovementResponse(m, it))
	}
	return &dto.MovementListResponse{
		Items: out,
		Page:  in.Response(0),
	}, nil
}

func (uc *MovementUseCase) toResponse(ctx context.Context, m *entity.Movement) *dto.MovementResponse {
	item, _ := uc.itemRepo.GetByID(ctx, m.ItemID)
	resp := toMovementResponse(m, item)
	return &resp
}

func toMovementResponse(m *entity.Movement, item *entity.Item) dto.MovementResponse {
	resp := dto.MovementResponse{
		ID:         m.ID,
		ItemID:     m.ItemID,
		ActorID:    m.ActorID,
		Kind:       string(m.Kind),
		Quantity:   m.Quantity,
		OccurredAt: m.OccurredAt,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
	if item != nil {
		resp.ItemCode = item.Code
		resp.ItemName = item.Name
	}
	return resp
}
