package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Insumos-api/internal/application/dto"
	"github.com/jhoicas/Insumos-api/internal/application/inventory"
	"github.com/jhoicas/Insumos-api/internal/domain"
	"github.com/jhoicas/Insumos-api/internal/domain/entity"
	domaininv "github.com/jhoicas/Insumos-api/internal/domain/inventory"
	"github.com/jhoicas/Insumos-api/internal/domain/repository"
	"github.com/jhoicas/Insumos-api/pkg/normalize"
)

// ItemUseCase casos de uso CRUD para insumos. El stock no se edita: se deriva de los movimientos.
type ItemUseCase struct {
	repo     repository.ItemRepository
	txRunner inventory.TxRunner
	stock    inventory.StockReader
}

// NewItemUseCase construye el caso de uso.
func NewItemUseCase(repo repository.ItemRepository, txRunner inventory.TxRunner, stock inventory.StockReader) *ItemUseCase {
	return &ItemUseCase{repo: repo, txRunner: txRunner, stock: stock}
}

// Create crea un insumo. El código se normaliza antes de validar unicidad.
func (uc *ItemUseCase) Create(ctx context.Context, in dto.CreateItemRequest) (*dto.ItemResponse, error) {
	code := normalize.Code(in.Code)
	name := normalize.Name(in.Name)
	if code == "" || name == "" {
		return nil, fmt.Errorf("%w: código y nombre son obligatorios", domain.ErrInvalidInput)
	}
	if in.CriticalThreshold < 0 {
		return nil, fmt.Errorf("%w: el umbral crítico no puede ser negativo", domain.ErrInvalidInput)
	}
	existing, err := uc.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: ya existe un insumo con código %s", domain.ErrDuplicate, code)
	}

	now := time.Now().UTC()
	item := &entity.Item{
		ID:                uuid.New().String(),
		Code:              code,
		Name:              name,
		Description:       strings.TrimSpace(in.Description),
		CriticalThreshold: in.CriticalThreshold,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := uc.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	return toItemResponse(item, 0), nil
}

// GetByID obtiene un insumo con su stock derivado.
func (uc *ItemUseCase) GetByID(ctx context.Context, id string) (*dto.ItemResponse, error) {
	item, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	qty, err := uc.stock.CurrentStock(ctx, id)
	if err != nil {
		return nil, err
	}
	return toItemResponse(item, qty), nil
}

// Stock devuelve solo el stock derivado.
func (uc *ItemUseCase) Stock(ctx context.Context, id string) (*dto.StockResponse, error) {
	item, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	qty, err := uc.stock.CurrentStock(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.StockResponse{ItemID: id, Stock: qty, CriticalThreshold: item.CriticalThreshold}, nil
}

// Update modifica código, nombre, descripción o umbral. Un cambio de umbral solo afecta alertas futuras.
func (uc *ItemUseCase) Update(ctx context.Context, id string, in dto.UpdateItemRequest) (*dto.ItemResponse, error) {
	item, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	if in.Code != nil {
		code := normalize.Code(*in.Code)
		if code == "" {
			return nil, fmt.Errorf("%w: código vacío", domain.ErrInvalidInput)
		}
		if code != item.Code {
			other, err := uc.repo.GetByCode(ctx, code)
			if err != nil {
				return nil, err
			}
			if other != nil && other.ID != item.ID {
				return nil, fmt.Errorf("%w: ya existe un insumo con código %s", domain.ErrDuplicate, code)
			}
			item.Code = code
		}
	}
	if in.Name != nil {
		name := normalize.Name(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: nombre vacío", domain.ErrInvalidInput)
		}
		item.Name = name
	}
	if in.Description != nil {
		item.Description = strings.TrimSpace(*in.Description)
	}
	if in.CriticalThreshold != nil {
		if *in.CriticalThreshold < 0 {
			return nil, fmt.Errorf("%w: el umbral crítico no puede ser negativo", domain.ErrInvalidInput)
		}
		item.CriticalThreshold = *in.CriticalThreshold
	}
	item.UpdatedAt = time.Now().UTC()
	if err := uc.repo.Update(ctx, item); err != nil {
		return nil, err
	}
	qty, err := uc.stock.CurrentStock(ctx, id)
	if err != nil {
		return nil, err
	}
	return toItemResponse(item, qty), nil
}

// List lista insumos paginados, cada uno con su stock derivado.
func (uc *ItemUseCase) List(ctx context.Context, page dto.PageRequest) (*dto.ItemListResponse, error) {
	page.DefaultPage()
	list, err := uc.repo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	total, err := uc.repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ItemResponse, 0, len(list))
	for _, it := range list {
		qty, err := uc.stock.CurrentStock(ctx, it.ID)
		if err != nil {
			return nil, err
		}
		items = append(items, *toItemResponse(it, qty))
	}
	return &dto.ItemListResponse{
		Items: items,
		Page:  page.Response(total),
	}, nil
}

// Delete elimina un insumo sin movimientos. Corre bajo el lock del insumo para que
// ningún movimiento nuevo se registre entre el conteo y el borrado.
func (uc *ItemUseCase) Delete(ctx context.Context, id string) error {
	item, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return domain.ErrNotFound
	}
	return uc.txRunner.RunForItem(ctx, id, func(movRepo repository.MovementRepository, itemRepo repository.ItemRepository) error {
		n, err := movRepo.CountByItem(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: el insumo tiene %d movimientos registrados", domain.ErrConflict, n)
		}
		return itemRepo.Delete(ctx, id)
	})
}

func toItemResponse(it *entity.Item, stock int64) *dto.ItemResponse {
	if it == nil {
		return nil
	}
	return &dto.ItemResponse{
		ID:                it.ID,
		Code:              it.Code,
		Name:              it.Name,
		Description:       it.Description,
		CriticalThreshold: it.CriticalThreshold,
		Stock:             stock,
		Critical:          domaininv.ShouldAlert(stock, it.CriticalThreshold),
		CreatedAt:         it.CreatedAt,
		UpdatedAt:         it.UpdatedAt,
	}
}
