// seed carga un catálogo inicial de insumos desde un CSV y registra su stock de apertura
// como entradas (IN) a través del motor de movimientos.
//
// Uso: go run ./cmd/seed <admin-email> <admin-password> [ruta/insumos.csv]
// Por defecto busca insumos.csv en el directorio actual.
// Columnas (separador ';'): codigo;nombre;umbral_critico;stock_inicial
// Si el archivo viene en ISO-8859-1 (exportado desde Excel) se convierte a UTF-8.
package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/Insumos-api/internal/application/auth"
	"github.com/jhoicas/Insumos-api/internal/application/dto"
	"github.com/jhoicas/Insumos-api/internal/application/inventory"
	"github.com/jhoicas/Insumos-api/internal/application/usecase"
	"github.com/jhoicas/Insumos-api/internal/domain"
	"github.com/jhoicas/Insumos-api/internal/domain/entity"
	"github.com/jhoicas/Insumos-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Insumos-api/pkg/config"
	"github.com/jhoicas/Insumos-api/pkg/logger"
)

type seedRow struct {
	code, name       string
	threshold, stock int64
}

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "uso: seed <admin-email> <admin-password> [insumos.csv]")
		os.Exit(2)
	}
	email, password := os.Args[1], os.Args[2]
	csvPath := "insumos.csv"
	if len(os.Args) > 3 {
		csvPath = os.Args[3]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	rows, err := readRows(csvPath)
	if err != nil {
		log.Fatal().Err(err).Str("file", csvPath).Msg("leer CSV")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("esquema de base de datos")
	}

	users := postgres.NewUserRepository(pool)
	items := postgres.NewItemRepository(pool)
	movements := postgres.NewMovementRepository(pool)
	txRunner := postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout)

	admin, err := ensureAdmin(ctx, auth.NewAuthUseCase(users, auth.JWTConfig{}), users, email, password)
	if err != nil {
		log.Fatal().Err(err).Msg("usuario administrador")
	}

	engine := inventory.NewLedgerEngine(inventory.LedgerDeps{
		TxRunner:     txRunner,
		ItemRepo:     items,
		MovementRepo: movements,
		UserRepo:     users,
		Log:          log,
		MaxAttempts:  cfg.Ledger.MaxAttempts,
		RetryBackoff: cfg.Ledger.RetryBackoff,
	})
	itemUC := usecase.NewItemUseCase(items, txRunner, engine)

	var created, skipped int
	for _, r := range rows {
		item, err := itemUC.Create(ctx, dto.CreateItemRequest{Code: r.code, Name: r.name, CriticalThreshold: r.threshold})
		if errors.Is(err, domain.ErrDuplicate) {
			skipped++
			log.Info().Str("code", r.code).Msg("insumo ya existe, se omite")
			continue
		}
		if err != nil {
			log.Fatal().Err(err).Str("code", r.code).Msg("crear insumo")
		}
		if r.stock > 0 {
			if _, err := engine.CreateMovement(ctx, inventory.CreateMovementInput{
				ItemID: item.ID, ActorID: admin, Kind: string(entity.MovementKindIN), Quantity: r.stock,
			}); err != nil {
				log.Fatal().Err(err).Str("code", r.code).Msg("stock de apertura")
			}
		}
		created++
	}
	log.Info().Int("created", created).Int("skipped", skipped).Msg("carga inicial terminada")
}

// ensureAdmin devuelve el id del admin, registrándolo si no existe.
func ensureAdmin(ctx context.Context, authUC *auth.AuthUseCase, users interface {
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
}, email, password string) (string, error) {
	existing, err := users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", err
	}
	if existing != nil {
		if existing.Role != entity.RoleAdmin {
			return "", fmt.Errorf("%s existe pero no es admin", email)
		}
		return existing.ID, nil
	}
	u, err := authUC.CreateUser(ctx, dto.CreateUserRequest{Email: email, Password: password, Name: "Administrador", Role: entity.RoleAdmin})
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

func readRows(path string) ([]seedRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseRows(f)
}

// parseRows detecta la codificación con la primera porción del archivo: si no es UTF-8 válido
// se decodifica como ISO-8859-1.
func parseRows(in io.Reader) ([]seedRow, error) {
	br := bufio.NewReader(in)
	head, _ := br.Peek(4096)
	if len(head) == 4096 {
		// la ventana puede cortar un rune multibyte al final
		for i := 0; i < utf8.UTFMax && !utf8.Valid(head); i++ {
			head = head[:len(head)-1]
		}
	}
	var r io.Reader = br
	if !utf8.Valid(head) {
		r = transform.NewReader(br, charmap.ISO8859_1.NewDecoder())
	}

	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []seedRow
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "codigo") {
			continue // cabecera
		}
		if len(rec) < 2 || strings.TrimSpace(rec[0]) == "" {
			continue
		}
		row := seedRow{code: strings.TrimSpace(rec[0]), name: strings.TrimSpace(rec[1])}
		if len(rec) > 2 && strings.TrimSpace(rec[2]) != "" {
			if row.threshold, err = strconv.ParseInt(strings.TrimSpace(rec[2]), 10, 64); err != nil {
				return nil, fmt.Errorf("línea %d: umbral inválido %q", line, rec[2])
			}
		}
		if len(rec) > 3 && strings.TrimSpace(rec[3]) != "" {
			if row.stock, err = strconv.ParseInt(strings.TrimSpace(rec[3]), 10, 64); err != nil {
				return nil, fmt.Errorf("línea %d: stock inválido %q", line, rec[3])
			}
		}
		out = append(out, row)
	}
	return out, nil
}
