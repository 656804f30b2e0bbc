// Package pdf genera el kardex de un insumo en PDF.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Código + Nombre     │  Código de barras + Fecha    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Fecha | Tipo | Cantidad | Saldo | Responsable       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Entradas / Salidas / SALDO FINAL                   │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"
	"strconv"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/Insumos-api/internal/application/dto"
	"github.com/jhoicas/Insumos-api/internal/application/inventory"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorAlert   = &props.Color{Red: 180, Green: 30, Blue: 30}
)

var _ inventory.StatementRenderer = (*StatementGenerator)(nil)

// StatementGenerator implementa inventory.StatementRenderer usando Maroto v2.
type StatementGenerator struct{}

// NewStatementGenerator construye el generador.
func NewStatementGenerator() *StatementGenerator { return &StatementGenerator{} }

// RenderStatement genera el PDF del kardex y devuelve sus bytes.
func (g *StatementGenerator) RenderStatement(st *dto.ItemStatement) ([]byte, error) {
	if st == nil {
		return nil, fmt.Errorf("pdf: kardex vacío")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Kardex "+st.Code, true).
		WithAuthor("insumos-api", true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(st))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	m.AddRows(tableHeaderRow())
	if len(st.Lines) == 0 {
		m.AddRows(row.New(8).Add(col.New(12).Add(
			text.New("Sin movimientos registrados.", props.Text{
				Size: 8, Align: align.Center, Color: colorGray, Top: 2,
			}),
		)))
	}
	for _, r := range tableDetailRows(st.Lines) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(st))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(st *dto.ItemStatement) core.Row {
	return row.New(22).Add(
		col.New(7).Add(
			text.New("KARDEX DE INSUMO", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(st.Name, props.Text{
				Style: fontstyle.Bold, Size: 13, Top: 6,
			}),
			text.New(fmt.Sprintf("Código: %s   |   Umbral crítico: %d", st.Code, st.CriticalThreshold), props.Text{
				Size: 8, Top: 15, Color: colorGray,
			}),
		),
		col.New(5).Add(
			code.NewBar(st.Code, props.Barcode{Percent: 70, Center: true}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Fecha", 3, align.Left),
		h("Tipo", 2, align.Center),
		h("Cantidad", 2, align.Right),
		h("Saldo", 2, align.Right),
		h("Responsable", 3, align.Left),
	)
}

func tableDetailRows(lines []dto.StatementLine) []core.Row {
	result := make([]core.Row, 0, len(lines))
	for _, l := range lines {
		qty := formatQty(l.Quantity)
		if l.Kind == "OUT" {
			qty = "-" + qty
		}
		result = append(result, row.New(6).Add(
			col.New(3).Add(text.New(l.OccurredAt.Format("02/01/2006 15:04"),
				props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New(kindLabel(l.Kind),
				props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(qty,
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New(formatQty(l.Balance),
				props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(3).Add(text.New(shortID(l.ActorID),
				props.Text{Size: 7, Top: 1, Left: 1, Color: colorGray})),
		))
	}
	return result
}

func totalsRow(st *dto.ItemStatement) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	finalColor := colorPrimary
	if st.FinalBalance > 0 && st.FinalBalance < st.CriticalThreshold {
		finalColor = colorAlert
	}

	return row.New(20).Add(
		col.New(6).Add(
			text.New("Generado: "+st.GeneratedAt.Format("02/01/2006 15:04 MST"), props.Text{
				Size: 7, Color: colorGray, Top: 14,
			}),
		),
		col.New(3).Add(
			label("Entradas:"),
			text.New("Salidas:", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: 5}),
			text.New("SALDO FINAL:", props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Right: 2, Top: 11, Color: finalColor}),
		),
		col.New(3).Add(
			value(formatQty(st.TotalIn)),
			text.New(formatQty(st.TotalOut), props.Text{Size: 9, Align: align.Right, Right: 1, Top: 5}),
			text.New(formatQty(st.FinalBalance), props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Right: 1, Top: 11, Color: finalColor}),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func kindLabel(kind string) string {
	switch kind {
	case "IN":
		return "Entrada"
	case "OUT":
		return "Salida"
	default:
		return kind
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatQty inserta puntos de miles. Ej: 25000 → "25.000".
func formatQty(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	l := len(s)
	buf := make([]byte, 0, l+l/3+1)
	if neg {
		buf = append(buf, '-')
	}
	for i, c := range []byte(s) {
		if i > 0 && (l-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return string(buf)
}
