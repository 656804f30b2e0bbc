package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Insumos-api/internal/application/auth"
	"github.com/jhoicas/Insumos-api/internal/application/inventory"
	"github.com/jhoicas/Insumos-api/internal/application/usecase"
	"github.com/jhoicas/Insumos-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC      *auth.AuthUseCase
	UserUC      *usecase.UserUseCase
	ItemUC      *usecase.ItemUseCase
	MovementUC  *inventory.MovementUseCase
	StatementUC *inventory.StatementUseCase
	CriticalUC  *inventory.CriticalListUseCase
	JWTSecret   string
}

// Router registra las rutas de la API.
// Lecturas: cualquier usuario autenticado. Altas, ediciones y bajas: solo admin.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público salvo /me)
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Get("/me", AuthMiddleware(deps.JWTSecret), authHandler.Me)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	adminOnly := RequireRole(entity.RoleAdmin)

	// El registro público crea operators; los roles se asignan aquí.
	users := protected.Group("/users")
	userHandler := NewUserHandler(deps.UserUC, deps.AuthUC)
	users.Get("/", adminOnly, userHandler.List)
	users.Post("/", adminOnly, userHandler.Create)
	users.Get("/:id", adminOnly, userHandler.GetByID)
	users.Put("/:id", userHandler.Update)
	users.Delete("/:id", userHandler.Delete)

	items := protected.Group("/items")
	itemHandler := NewItemHandler(deps.ItemUC, deps.StatementUC, deps.CriticalUC)
	items.Get("/", itemHandler.List)
	items.Get("/critical", itemHandler.Critical)
	items.Post("/", adminOnly, itemHandler.Create)
	items.Get("/:id", itemHandler.GetByID)
	items.Put("/:id", adminOnly, itemHandler.Update)
	items.Delete("/:id", adminOnly, itemHandler.Delete)
	items.Get("/:id/stock", itemHandler.Stock)
	items.Get("/:id/statement", itemHandler.Statement)
	items.Get("/:id/statement.pdf", itemHandler.StatementPDF)

	movements := protected.Group("/movements")
	movementHandler := NewMovementHandler(deps.MovementUC)
	movements.Get("/", movementHandler.List)
	movements.Post("/", adminOnly, movementHandler.Create)
	movements.Get("/:id", movementHandler.GetByID)
	movements.Put("/:id", adminOnly, movementHandler.Update)
	movements.Delete("/:id", adminOnly, movementHandler.Delete)
}
