package inventory

import (
	"github.com/jhoicas/Insumos-api/internal/domain"
	"github.com/jhoicas/Insumos-api/internal/domain/entity"
)

// CheckResultingStock valida el stock resultante de crear o editar un movimiento de tipo kind.
//   - after < 0 nunca se permite.
//   - una salida (OUT) no puede dejar el stock exactamente en cero.
func CheckResultingStock(itemID string, kind entity.MovementKind, current, after int64) error {
	if after < 0 {
		return &domain.InvariantError{Rule: domain.RuleNegativeStock, ItemID: itemID, Current: current, After: after}
	}
	if after == 0 && kind == entity.MovementKindOUT {
		return &domain.InvariantError{Rule: domain.RuleZeroByOut, ItemID: itemID, Current: current, After: after}
	}
	return nil
}

// CheckRemoval valida la eliminación de un movimiento de tipo removed.
// Eliminar una entrada solo se rechaza si el stock quedaría negativo; eliminar una salida
// nunca se rechaza. La eliminación es correctiva: puede llegar exactamente a cero.
func CheckRemoval(itemID string, removed entity.MovementKind, current, after int64) error {
	if removed == entity.MovementKindIN && after < 0 {
		return &domain.InvariantError{Rule: domain.RuleNegativeStock, ItemID: itemID, Current: current, After: after}
	}
	return nil
}

// ShouldAlert decide si el stock resultante está en la franja crítica: 0 < after < threshold.
// No depende del valor anterior: cada mutación que termina en la franja notifica.
func ShouldAlert(after, threshold int64) bool {
	return after > 0 && after < threshold
}
