package inventory

import "github.com/jhoicas/Insumos-api/internal/domain/entity"

// StockCalculator deriva el stock de un insumo sumando el efecto con signo de sus movimientos.
// Stock = Σ cantidad × (+1 si IN, −1 si OUT). Un historial vacío da 0.
func StockCalculator(movements []*entity.Movement) int64 {
	var total int64
	for _, m := range movements {
		if m == nil {
			continue
		}
		total += m.Effect()
	}
	return total
}

// StockExcluding calcula el stock como si el movimiento movementID no existiera.
func StockExcluding(movements []*entity.Movement, movementID string) int64 {
	var total int64
	for _, m := range movements {
		if m == nil || m.ID == movementID {
			continue
		}
		total += m.Effect()
	}
	return total
}

// RunningBalance devuelve el saldo acumulado después de cada movimiento, en el orden recibido.
func RunningBalance(movements []*entity.Movement) []int64 {
	out := make([]int64, len(movements))
	var total int64
	for i, m := range movements {
		if m != nil {
			total += m.Effect()
		}
		out[i] = total
	}
	return out
}
