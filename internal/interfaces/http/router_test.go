package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Prospectos-api/internal/application/access"
	"github.com/jhoicas/Prospectos-api/internal/application/auth"
	"github.com/jhoicas/Prospectos-api/internal/application/dto"
	"github.com/jhoicas/Prospectos-api/internal/application/intake"
	"github.com/jhoicas/Prospectos-api/internal/application/lifecycle"
	"github.com/jhoicas/Prospectos-api/internal/application/session"
	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
	"github.com/jhoicas/Prospectos-api/internal/infrastructure/memory"
	"github.com/jhoicas/Prospectos-api/internal/infrastructure/notify"
	apphttp "github.com/jhoicas/Prospectos-api/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/Prospectos-api/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Aplicación completa sobre el store en memoria
// ──────────────────────────────────────────────────────────────────────────────

type consoleApp struct {
	app   *fiber.App
	store *memory.Store
}

func newConsoleApp(t *testing.T) *consoleApp {
	t.Helper()
	store := memory.NewStore()
	log := zerolog.Nop()
	sessions := session.NewProvider()
	inbox := notify.NewInbox(16, 20, time.Hour)

	resolver := access.NewPermissionResolver(store.Permissions(), access.DefaultResolverConfig(), log)
	guards := access.NewGuardRegistry(access.GuardDeps{
		Session:  sessions,
		Resolver: resolver,
		Roles:    store.Roles(),
		Notifier: inbox,
		Log:      log,
	}, access.GuardConfig{MaxRetries: 3})

	authUC := auth.NewAuthUseCase(auth.Deps{
		Users:       store.Users(),
		Permissions: store.Permissions(),
		Cache:       resolver,
		Sessions:    sessions,
		Log:         log,
	}, auth.JWTConfig{Secret: testJWTSecret, ExpMinutes: testExpMin, Issuer: testIssuer})

	lifecycleUC := lifecycle.NewLeadLifecycleUseCase(lifecycle.Deps{
		Tx:          memory.NewTxRunner(store),
		Leads:       store.Leads(),
		Validations: store.Validations(),
		History:     store.Audit(),
		Audit:       notify.NewRepositoryAuditSink(store.Audit()),
		Notifier:    inbox,
		Log:         log,
	}, lifecycle.Config{LifetimePrefix: "CUS"})

	intakeUC := intake.NewIntakeUseCase(intake.Deps{Tx: memory.NewTxRunner(store), Log: log})

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		AuthUC:    authUC,
		Lifecycle: lifecycleUC,
		Intake:    intakeUC,
		Guards:    guards,
		Resolver:  resolver,
		Roles:     store.Roles(),
		Inbox:     inbox,
		JWTSecret: testJWTSecret,
	})

	ca := &consoleApp{app: app, store: store}
	for _, u := range []struct {
		id   string
		role entity.Role
	}{
		{"u-admin", entity.RoleAdmin},
		{"u-owner", entity.RoleOwner},
		{"u-supply", entity.RoleSupply},
	} {
		require.NoError(t, store.Users().Create(context.Background(), &entity.User{
			ID: u.id, Email: u.id + "@ejemplo.com", Role: u.role, CreatedAt: time.Now(),
		}))
	}
	return ca
}

func (ca *consoleApp) token(t *testing.T, userID string, role entity.Role) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testIssuer, testExpMin, pkgjwt.Identity{
		UserID: userID, Email: userID + "@ejemplo.com", Role: string(role),
	})
	require.NoError(t, err)
	return tok
}

// call hace la petición y decodifica la respuesta en out (si no es nil).
func (ca *consoleApp) call(t *testing.T, method, path, token string, body, out interface{}) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ca.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out), string(raw))
	}
	return resp.StatusCode
}

func (ca *consoleApp) allowPage(t *testing.T, role entity.Role, page string) {
	t.Helper()
	status := ca.call(t, http.MethodPut, "/api/permissions", ca.token(t, "u-admin", entity.RoleAdmin),
		dto.UpsertPermissionRequest{Role: string(role), PageID: page, Allowed: true}, nil)
	require.Equal(t, http.StatusOK, status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Guard de navegación
// ──────────────────────────────────────────────────────────────────────────────

func TestAccessCheck_SinSesion_RedirigeAlLogin(t *testing.T) {
	ca := newConsoleApp(t)

	var d dto.AccessDecisionResponse
	status := ca.call(t, http.MethodPost, "/api/access/check", "", dto.AccessCheckRequest{Path: "/leads/42"}, &d)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(entity.GuardUnauthenticated), d.State)
	assert.False(t, d.Allow)
	assert.Equal(t, "/auth?redirect=%2Fleads%2F42", d.RedirectTo)
}

// Sin fila de permiso se deniega; tras concederla el cambio se ve de inmediato.
func TestAccessCheck_DenegadoLuegoPermitido(t *testing.T) {
	ca := newConsoleApp(t)
	tok := ca.token(t, "u-supply", entity.RoleSupply)

	var d dto.AccessDecisionResponse
	require.Equal(t, http.StatusOK, ca.call(t, http.MethodPost, "/api/access/check", tok, dto.AccessCheckRequest{Path: "/leads"}, &d))
	assert.Equal(t, string(entity.GuardDenied), d.State)
	assert.Equal(t, "leads", d.PageID)
	assert.Contains(t, d.Reason, "supply")

	ca.allowPage(t, entity.RoleSupply, "leads")

	require.Equal(t, http.StatusOK, ca.call(t, http.MethodPost, "/api/access/check", tok, dto.AccessCheckRequest{Path: "/leads"}, &d))
	assert.Equal(t, string(entity.GuardAllowed), d.State)
	assert.True(t, d.Allow)
	assert.Equal(t, uint64(2), d.Seq)

	var current dto.AccessDecisionResponse
	require.Equal(t, http.StatusOK, ca.call(t, http.MethodGet, "/api/access/current", tok, nil, &current))
	assert.Equal(t, d.Seq, current.Seq)

	// El rechazo quedó en la bandeja del usuario.
	var inbox []map[string]interface{}
	require.Equal(t, http.StatusOK, ca.call(t, http.MethodGet, "/api/notifications", tok, nil, &inbox))
	require.Len(t, inbox, 1)
	assert.Equal(t, "access_decision", inbox[0]["kind"])
	assert.Equal(t, "error", inbox[0]["level"])
}

// Una secuencia anterior a la última emitida se descarta.
func TestAccessCheck_SecuenciaObsoleta(t *testing.T) {
	ca := newConsoleApp(t)
	tok := ca.token(t, "u-admin", entity.RoleAdmin)

	var d dto.AccessDecisionResponse
	require.Equal(t, http.StatusOK, ca.call(t, http.MethodPost, "/api/access/check", tok, dto.AccessCheckRequest{Path: "/leads", Seq: 5}, &d))
	assert.True(t, d.Allow)

	require.Equal(t, http.StatusOK, ca.call(t, http.MethodPost, "/api/access/check", tok, dto.AccessCheckRequest{Path: "/users", Seq: 4}, &d))
	assert.True(t, d.Superseded)

	var current dto.AccessDecisionResponse
	ca.call(t, http.MethodGet, "/api/access/current", tok, nil, &current)
	assert.Equal(t, uint64(5), current.Seq)
	assert.Equal(t, "/leads", current.Path)
}

func TestAccessRetry_SinPendiente_Retorna409(t *testing.T) {
	ca := newConsoleApp(t)
	var e dto.ErrorResponse
	status := ca.call(t, http.MethodPost, "/api/access/retry", ca.token(t, "u-admin", entity.RoleAdmin), nil, &e)

	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "NOTHING_TO_RETRY", e.Code)
}

// ──────────────────────────────────────────────────────────────────────────────
// Roles y permisos
// ──────────────────────────────────────────────────────────────────────────────

func TestPermissions_SoloPrivilegiados(t *testing.T) {
	ca := newConsoleApp(t)
	status := ca.call(t, http.MethodPut, "/api/permissions", ca.token(t, "u-supply", entity.RoleSupply),
		dto.UpsertPermissionRequest{Role: "supply", PageID: "leads", Allowed: true}, nil)
	assert.Equal(t, http.StatusForbidden, status)

	ca.allowPage(t, entity.RoleSupply, "Leads")

	var rows []dto.PermissionResponse
	require.Equal(t, http.StatusOK, ca.call(t, http.MethodGet, "/api/permissions?role=supply", ca.token(t, "u-admin", entity.RoleAdmin), nil, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "leads", rows[0].PageID)
	assert.True(t, rows[0].Allowed)
}

// El rol vigente manda sobre el del token: al promover a supply el token viejo ya
// no conserva permisos de admin.
func TestUpdateRole_AplicaSinNuevoToken(t *testing.T) {
	ca := newConsoleApp(t)
	staleAdmin := ca.token(t, "u-supply", entity.RoleAdmin)

	status := ca.call(t, http.MethodPut, "/api/permissions", staleAdmin,
		dto.UpsertPermissionRequest{Role: "supply", PageID: "leads", Allowed: true}, nil)
	assert.Equal(t, http.StatusForbidden, status)

	var user dto.UserResponse
	require.Equal(t, http.StatusOK, ca.call(t, http.MethodPut, "/api/users/u-supply/role", ca.token(t, "u-admin", entity.RoleAdmin),
		dto.UpdateRoleRequest{Role: "afiliados"}, &user))
	assert.Equal(t, "afiliados", user.Role)

	var e dto.ErrorResponse
	status = ca.call(t, http.MethodPut, "/api/users/u-owner/role", ca.token(t, "u-admin", entity.RoleAdmin),
		dto.UpdateRoleRequest{Role: "supply"}, &e)
	assert.Equal(t, http.StatusForbidden, status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Prospectos
// ──────────────────────────────────────────────────────────────────────────────

func TestLeads_SinPermisoDePagina_Retorna403(t *testing.T) {
	ca := newConsoleApp(t)
	var e dto.ErrorResponse
	status := ca.call(t, http.MethodPost, "/api/leads", ca.token(t, "u-supply", entity.RoleSupply),
		dto.IntakeRequest{Name: "Ana", Phone: "5512345678", Channel: "call_center"}, &e)

	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "PAGE_FORBIDDEN", e.Code)
}

func TestLeads_CapturaFusionYValidacion(t *testing.T) {
	ca := newConsoleApp(t)
	ca.allowPage(t, entity.RoleSupply, "leads")
	tok := ca.token(t, "u-supply", entity.RoleSupply)

	var created dto.IntakeResponse
	require.Equal(t, http.StatusCreated, ca.call(t, http.MethodPost, "/api/leads", tok,
		dto.IntakeRequest{Name: "Ana Pérez", Phone: "55 1234 5678", Channel: "call_center"}, &created))
	assert.False(t, created.Merged)
	assert.Equal(t, "nuevo", created.Lead.Status)
	assert.Equal(t, 1, created.Lead.CallCount)
	id := created.Lead.ID

	// Mismo teléfono por otro canal: se fusiona y completa el email.
	var merged dto.IntakeResponse
	require.Equal(t, http.StatusOK, ca.call(t, http.MethodPost, "/api/leads", tok,
		dto.IntakeRequest{Name: "Ana", Phone: "+52 55 1234 5678", Email: "ana@correo.com", Channel: "formulario_web"}, &merged))
	assert.True(t, merged.Merged)
	assert.Equal(t, id, merged.Lead.ID)
	assert.Equal(t, "ana@correo.com", merged.Lead.Email)

	for _, st := range []string{"contactado", "llamado_primer_contacto"} {
		require.Equal(t, http.StatusOK, ca.call(t, http.MethodPost, "/api/leads/"+id+"/status", tok, dto.StatusChangeRequest{Status: st}, nil))
	}

	// Sin formulario no se puede validar.
	var e dto.ErrorResponse
	require.Equal(t, http.StatusUnprocessableEntity, ca.call(t, http.MethodPost, "/api/leads/"+id+"/validate", tok, nil, &e))
	assert.Equal(t, "VALIDATION_INCOMPLETE", e.Code)
	assert.Equal(t, []string{entity.CriterionValidationRecord}, e.Missing)

	yes := true
	var form dto.ValidationResponse
	require.Equal(t, http.StatusOK, ca.call(t, http.MethodPut, "/api/leads/"+id+"/validation", tok, dto.ValidationRequest{
		AgeRequirementMet: &yes, InterviewPassed: &yes, BackgroundCheckPassed: &yes,
	}, &form))
	assert.Empty(t, form.Missing)

	var tr dto.TransitionResponse
	require.Equal(t, http.StatusOK, ca.call(t, http.MethodPost, "/api/leads/"+id+"/validate", tok, nil, &tr))
	assert.Equal(t, "validado", tr.Lead.Status)
	assert.Regexp(t, `^CUS-\d{4}-[0-9A-F]{8}$`, tr.Lead.LifetimeID)
	assert.False(t, tr.Forced)

	// Fuera del grafo.
	require.Equal(t, http.StatusConflict, ca.call(t, http.MethodPost, "/api/leads/"+id+"/status", tok, dto.StatusChangeRequest{Status: "contactado"}, &e))
	assert.Equal(t, "TRANSITION_NOT_ALLOWED", e.Code)

	var history []dto.AuditEntryResponse
	require.Equal(t, http.StatusOK, ca.call(t, http.MethodGet, "/api/leads/"+id+"/history", tok, nil, &history))
	require.Len(t, history, 5)
	outcomes := map[string]int{}
	for _, h := range history {
		outcomes[h.Outcome]++
	}
	assert.Equal(t, map[string]int{"applied": 3, "refused": 2}, outcomes)
}

// Un owner aplica la aprobación con criterios faltantes y queda marcada como forzada.
func TestLeads_OwnerFuerzaAprobacion(t *testing.T) {
	ca := newConsoleApp(t)
	admin := ca.token(t, "u-admin", entity.RoleAdmin)
	owner := ca.token(t, "u-owner", entity.RoleOwner)

	var created dto.IntakeResponse
	require.Equal(t, http.StatusCreated, ca.call(t, http.MethodPost, "/api/leads", admin,
		dto.IntakeRequest{Name: "Luis", ExternalID: "EXT-9", Channel: "formulario_web"}, &created))
	id := created.Lead.ID
	for _, st := range []string{"contactado", "llamado_primer_contacto"} {
		require.Equal(t, http.StatusOK, ca.call(t, http.MethodPost, "/api/leads/"+id+"/status", admin, dto.StatusChangeRequest{Status: st}, nil))
	}
	no := false
	require.Equal(t, http.StatusOK, ca.call(t, http.MethodPut, "/api/leads/"+id+"/validation", admin,
		dto.ValidationRequest{InterviewPassed: &no}, nil))

	var e dto.ErrorResponse
	require.Equal(t, http.StatusUnprocessableEntity, ca.call(t, http.MethodPost, "/api/leads/"+id+"/approve", admin, nil, &e))

	var tr dto.TransitionResponse
	require.Equal(t, http.StatusOK, ca.call(t, http.MethodPost, "/api/leads/"+id+"/approve", owner, nil, &tr))
	assert.Equal(t, "calificado", tr.Lead.Status)
	assert.True(t, tr.Forced)
	assert.True(t, tr.Lead.Forced)
	assert.NotEmpty(t, tr.Lead.LifetimeID)
	assert.ElementsMatch(t, []string{entity.CriterionAge, entity.CriterionInterview, entity.CriterionBackgroundCheck}, tr.Missing)

	// El error del admin llegó a su bandeja.
	var inbox []map[string]interface{}
	require.Equal(t, http.StatusOK, ca.call(t, http.MethodGet, "/api/notifications", admin, nil, &inbox))
	require.NotEmpty(t, inbox)
	assert.Equal(t, "lifecycle_error", inbox[len(inbox)-1]["kind"])
	assert.Equal(t, id, inbox[len(inbox)-1]["lead_id"])
}

func TestLeads_Importacion(t *testing.T) {
	ca := newConsoleApp(t)
	tok := ca.token(t, "u-admin", entity.RoleAdmin)

	var items []dto.ImportItemResponse
	require.Equal(t, http.StatusOK, ca.call(t, http.MethodPost, "/api/leads/import", tok, dto.ImportRequest{Records: []dto.IntakeRequest{
		{Name: "Uno", Email: "uno@correo.com"},
		{Name: "Uno bis", Email: "UNO@correo.com"},
		{Name: "", Email: "x@correo.com"},
	}}, &items))
	require.Len(t, items, 3)
	assert.False(t, items[0].Merged)
	assert.True(t, items[1].Merged)
	assert.Equal(t, items[0].Lead.ID, items[1].Lead.ID)
	assert.Equal(t, "importacion", items[0].Lead.SourceChannel)
	assert.NotEmpty(t, items[2].Error)
	assert.Nil(t, items[2].Lead)
}

func TestLeads_NoEncontrado(t *testing.T) {
	ca := newConsoleApp(t)
	var e dto.ErrorResponse
	status := ca.call(t, http.MethodGet, "/api/leads/no-existe", ca.token(t, "u-admin", entity.RoleAdmin), nil, &e)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", e.Code)
}

// ──────────────────────────────────────────────────────────────────────────────
// Health y auth
// ──────────────────────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	app := fiber.New()
	h := apphttp.NewHealthHandler("prospectos-api", map[string]apphttp.HealthCheck{
		"postgres": func(context.Context) error { return nil },
	})
	app.Get("/health", h.Check)

	resp := doRequest(t, app, "/health", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	app2 := fiber.New()
	app2.Get("/health", apphttp.NewHealthHandler("prospectos-api", map[string]apphttp.HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}).Check)
	resp2 := doRequest(t, app2, "/health", "")
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp2.StatusCode)
	body, _ := io.ReadAll(resp2.Body)
	assert.Contains(t, string(body), "connection refused")
}

func TestAuth_RegistroLoginYMe(t *testing.T) {
	ca := newConsoleApp(t)

	var user dto.UserResponse
	require.Equal(t, http.StatusCreated, ca.call(t, http.MethodPost, "/api/auth/register", "",
		dto.RegisterRequest{Email: "nuevo@correo.com", Password: "secreto-123"}, &user))
	assert.Equal(t, "unverified", user.Role)

	status := ca.call(t, http.MethodPost, "/api/auth/register", "", dto.RegisterRequest{Email: "nuevo@correo.com", Password: "secreto-123"}, nil)
	assert.Equal(t, http.StatusConflict, status)

	var login dto.LoginResponse
	require.Equal(t, http.StatusOK, ca.call(t, http.MethodPost, "/api/auth/login", "",
		dto.LoginRequest{Email: "nuevo@correo.com", Password: "secreto-123"}, &login))
	require.NotEmpty(t, login.Token)

	var me dto.UserResponse
	require.Equal(t, http.StatusOK, ca.call(t, http.MethodGet, "/api/auth/me", login.Token, nil, &me))
	assert.Equal(t, "nuevo@correo.com", me.Email)

	assert.Equal(t, http.StatusUnauthorized, ca.call(t, http.MethodPost, "/api/auth/login", "",
		dto.LoginRequest{Email: "nuevo@correo.com", Password: "otra-cosa"}, nil))
	assert.Equal(t, http.StatusNoContent, ca.call(t, http.MethodPost, "/api/auth/logout", login.Token, nil, nil))
}
