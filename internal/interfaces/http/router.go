package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Prospectos-api/internal/application/access"
	"github.com/jhoicas/Prospectos-api/internal/application/auth"
	"github.com/jhoicas/Prospectos-api/internal/application/intake"
	"github.com/jhoicas/Prospectos-api/internal/application/lifecycle"
	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
	"github.com/jhoicas/Prospectos-api/internal/infrastructure/notify"
)

// LeadsPageID página de la consola que protege las rutas de prospectos.
const LeadsPageID = "leads"

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC    *auth.AuthUseCase
	Lifecycle *lifecycle.LeadLifecycleUseCase
	Intake    *intake.IntakeUseCase
	Guards    *access.GuardRegistry
	Resolver  access.Resolver
	Roles     access.RoleSource
	Inbox     *notify.Inbox
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Guard de navegación: sin sesión responde unauthenticated con redirect.
	accessHandler := NewAccessHandler(deps.Guards, deps.Inbox)
	accessGroup := api.Group("/access", OptionalAuth(deps.JWTSecret))
	accessGroup.Post("/check", accessHandler.Check)
	accessGroup.Post("/retry", accessHandler.Retry)
	accessGroup.Get("/current", accessHandler.Current)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret), FreshRole(deps.Roles))
	protected.Get("/auth/me", authHandler.Me)
	protected.Post("/auth/logout", authHandler.Logout)
	protected.Get("/notifications", accessHandler.Notifications)

	// Administración de roles y permisos (admin, owner)
	users := protected.Group("/users", RequirePrivileged())
	users.Put("/:id/role", authHandler.UpdateRole)
	permissions := protected.Group("/permissions", RequirePrivileged())
	permissions.Put("/", authHandler.UpsertPermission)
	permissions.Get("/", authHandler.ListPermissions)

	// Prospectos: requieren permiso sobre la página de prospectos.
	leadHandler := NewLeadHandler(deps.Lifecycle, deps.Intake)
	leads := protected.Group("/leads", RequireRole(entity.Roles()...), RequirePage(LeadsPageID, deps.Resolver))
	leads.Post("/", leadHandler.Intake)
	leads.Post("/import", leadHandler.Import)
	leads.Get("/:id", leadHandler.Get)
	leads.Post("/:id/status", leadHandler.ChangeStatus)
	leads.Post("/:id/approve", leadHandler.Approve)
	leads.Post("/:id/validate", leadHandler.Validate)
	leads.Post("/:id/reject", leadHandler.Reject)
	leads.Post("/:id/calls", leadHandler.RecordCall)
	leads.Get("/:id/validation", leadHandler.GetValidation)
	leads.Put("/:id/validation", leadHandler.SaveValidation)
	leads.Get("/:id/history", leadHandler.History)
}
