package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	"github.com/spec-kit/helpdesk/internal/service"
)

const password = "correct horse battery"

type testServer struct {
	app      *fiber.App
	dept     *domain.Department
	agent    *domain.Identity
	customer *domain.Identity
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore(time.Now)
	dispatcher := events.NewInMemoryDispatcher(nil)
	metrics := observability.NewMetrics()

	identities := service.NewIdentityService(service.IdentityDependencies{Store: store, BcryptCost: bcrypt.MinCost})
	sessions := service.NewSessionService(service.SessionDependencies{
		Store: store,
		Tokens: auth.NewTokenManager(auth.TokenOptions{
			Secret:   "test-secret",
			Issuer:   "helpdesk",
			Audience: "helpdesk-api",
			TTL:      time.Hour,
		}),
		RefreshTTL: 24 * time.Hour,
		Dispatcher: dispatcher,
		Metrics:    metrics,
	})
	policy := service.NewSLAPolicy(store.Departments(), nil, 16, time.Minute, 1)
	tickets := service.NewTicketService(service.TicketDependencies{
		Store:      store,
		Policy:     policy,
		Dispatcher: dispatcher,
		Metrics:    metrics,
	})
	departments := service.NewDepartmentService(store, policy, nil)
	helpdesk := service.NewHelpdesk(service.HelpdeskDependencies{
		Identities: identities,
		Sessions:   sessions,
		Tickets:    tickets,
		Store:      store,
		Limiter:    auth.NewMemoryLoginLimiter(5, 15*time.Minute, nil),
		Metrics:    metrics,
	})

	s := &testServer{}
	s.dept = &domain.Department{Name: "Billing", IsActive: true}
	require.NoError(t, store.Departments().Create(ctx, s.dept))
	s.customer = domain.NewCustomer(domain.IdentityBase{Email: "casey@example.com", Active: true}, domain.CustomerProfile{})
	s.agent = domain.NewAgent(domain.IdentityBase{Email: "alex@example.com", Active: true}, domain.AgentProfile{DepartmentID: s.dept.ID})
	admin := domain.NewAdmin(domain.IdentityBase{Email: "root@example.com", Active: true}, domain.AdminProfile{ManageDepartments: true})
	stranger := domain.NewCustomer(domain.IdentityBase{Email: "sam@example.com", Active: true}, domain.CustomerProfile{})
	for _, identity := range []*domain.Identity{s.customer, s.agent, admin, stranger} {
		require.NoError(t, identities.Register(ctx, identity, password))
	}

	validator := dto.NewValidator()
	s.app = fiber.New()
	RegisterMiddlewares(s.app, zap.NewNop(), metrics, 5*time.Second)
	RegisterRoutes(s.app, RouteConfig{
		Health:         handlers.NewHealthHandler("helpdesk", "test", map[string]handlers.Pinger{"store": store}),
		Auth:           handlers.NewAuthHandler(helpdesk, validator),
		Tickets:        handlers.NewTicketsHandler(tickets, validator),
		Departments:    handlers.NewDepartmentsHandler(departments, validator),
		AuthMiddleware: auth.NewAuthMiddleware(helpdesk),
		Metrics:        metrics,
	})
	return s
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &env))
	}
	return resp.StatusCode, env
}

func (s *testServer) login(t *testing.T, email string) dto.TokenResponse {
	t.Helper()
	status, env := s.do(t, fiber.MethodPost, "/auth/login", "", dto.LoginRequest{Email: email, Password: password})
	require.Equal(t, fiber.StatusOK, status)
	var tokens dto.TokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &tokens))
	return tokens
}

func (s *testServer) createTicket(t *testing.T, token string) dto.TicketResponse {
	t.Helper()
	status, env := s.do(t, fiber.MethodPost, "/tickets", token, dto.CreateTicketRequest{
		DepartmentID: s.dept.ID,
		Subject:      "Invoice is wrong",
		Description:  "Charged twice.",
	})
	require.Equal(t, fiber.StatusCreated, status)
	var ticket dto.TicketResponse
	require.NoError(t, json.Unmarshal(env.Data, &ticket))
	return ticket
}

func TestTicketFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	customer := s.login(t, "casey@example.com")
	agent := s.login(t, "alex@example.com")
	assert.Equal(t, "Bearer", customer.TokenType)

	ticket := s.createTicket(t, customer.AccessToken)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityNormal, ticket.Priority)
	assert.Equal(t, "TCK-000001", ticket.Number)

	status, env := s.do(t, fiber.MethodPost, "/tickets/"+ticket.ID+"/assign", agent.AccessToken, dto.AssignRequest{AgentID: s.agent.ID})
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &ticket))
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)

	status, _ = s.do(t, fiber.MethodPost, "/tickets/"+ticket.ID+"/messages", agent.AccessToken, dto.CreateMessageRequest{Content: "checking", IsInternal: true})
	assert.Equal(t, fiber.StatusCreated, status)
	status, _ = s.do(t, fiber.MethodPost, "/tickets/"+ticket.ID+"/messages", agent.AccessToken, dto.CreateMessageRequest{Content: "refund issued"})
	assert.Equal(t, fiber.StatusCreated, status)

	status, env = s.do(t, fiber.MethodGet, "/tickets/"+ticket.ID+"/messages", customer.AccessToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	var msgs []dto.TicketMessageResponse
	require.NoError(t, json.Unmarshal(env.Data, &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, "refund issued", msgs[0].Content)

	status, env = s.do(t, fiber.MethodGet, "/tickets/"+ticket.ID, customer.AccessToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &ticket))
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
	assert.NotNil(t, ticket.FirstResponseAt)

	status, env = s.do(t, fiber.MethodGet, "/tickets/"+ticket.ID+"/history", agent.AccessToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	var history []dto.TicketHistoryResponse
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.NotEmpty(t, history)
}

func TestErrorResponses(t *testing.T) {
	s := newTestServer(t)
	customer := s.login(t, "casey@example.com")
	stranger := s.login(t, "sam@example.com")
	agent := s.login(t, "alex@example.com")
	ticket := s.createTicket(t, customer.AccessToken)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		code   string
	}{
		{"no token", fiber.MethodGet, "/tickets/" + ticket.ID, "", nil, fiber.StatusUnauthorized, "UNAUTHENTICATED"},
		{"garbage token", fiber.MethodGet, "/tickets/" + ticket.ID, "garbage", nil, fiber.StatusUnauthorized, "UNAUTHENTICATED"},
		{"other customer's ticket", fiber.MethodGet, "/tickets/" + ticket.ID, stranger.AccessToken, nil, fiber.StatusNotFound, "NOT_FOUND"},
		{"customer assigns", fiber.MethodPost, "/tickets/" + ticket.ID + "/assign", customer.AccessToken, dto.AssignRequest{AgentID: s.agent.ID}, fiber.StatusForbidden, "FORBIDDEN"},
		{"resolve open ticket", fiber.MethodPost, "/tickets/" + ticket.ID + "/status", agent.AccessToken, dto.TransitionRequest{Status: domain.TicketStatusResolved}, fiber.StatusConflict, "INVALID_TRANSITION"},
		{"empty message", fiber.MethodPost, "/tickets/" + ticket.ID + "/messages", customer.AccessToken, dto.CreateMessageRequest{}, fiber.StatusBadRequest, "VALIDATION_FAILED"},
		{"wrong password", fiber.MethodPost, "/auth/login", "", dto.LoginRequest{Email: "casey@example.com", Password: "nope"}, fiber.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"unknown refresh token", fiber.MethodPost, "/auth/refresh", "", dto.RefreshRequest{RefreshToken: "nope"}, fiber.StatusUnauthorized, "INVALID_OR_EXPIRED_TOKEN"},
		{"customer creates department", fiber.MethodPost, "/departments", customer.AccessToken, dto.DepartmentRequest{Name: "Legal"}, fiber.StatusForbidden, "FORBIDDEN"},
		{"unknown route", fiber.MethodGet, "/nowhere", "", nil, fiber.StatusNotFound, "NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := s.do(t, tc.method, tc.path, tc.token, tc.body)
			assert.Equal(t, tc.status, status)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
		})
	}
}

func TestRefreshAndLogout(t *testing.T) {
	s := newTestServer(t)
	tokens := s.login(t, "casey@example.com")

	status, env := s.do(t, fiber.MethodPost, "/auth/refresh", "", dto.RefreshRequest{RefreshToken: tokens.RefreshToken})
	require.Equal(t, fiber.StatusOK, status)
	var rotated dto.TokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &rotated))
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	status, env = s.do(t, fiber.MethodPost, "/auth/logout", "", dto.RefreshRequest{RefreshToken: rotated.RefreshToken})
	require.Equal(t, fiber.StatusOK, status)
	var out dto.LogoutResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.True(t, out.Revoked)

	status, _ = s.do(t, fiber.MethodGet, "/departments", rotated.AccessToken, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestDepartmentsOverHTTP(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "root@example.com")

	status, env := s.do(t, fiber.MethodPost, "/departments", admin.AccessToken, dto.DepartmentRequest{
		Name:     "Hardware",
		SLAHours: map[domain.TicketPriority]int{domain.TicketPriorityUrgent: 2},
	})
	require.Equal(t, fiber.StatusCreated, status)
	var dept dto.DepartmentResponse
	require.NoError(t, json.Unmarshal(env.Data, &dept))
	assert.True(t, dept.IsActive)
	assert.Equal(t, 2, dept.SLAHours[domain.TicketPriorityUrgent])

	status, _ = s.do(t, fiber.MethodDelete, "/departments/"+dept.ID, admin.AccessToken, nil)
	assert.Equal(t, fiber.StatusNoContent, status)

	status, env = s.do(t, fiber.MethodGet, "/departments", admin.AccessToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	var depts []dto.DepartmentResponse
	require.NoError(t, json.Unmarshal(env.Data, &depts))
	require.Len(t, depts, 1)
	assert.Equal(t, s.dept.ID, depts[0].ID)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, fiber.MethodGet, "/health/live", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = s.do(t, fiber.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusOK, status)

	resp, err := s.app.Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "helpdesk_http_requests_total")
}
