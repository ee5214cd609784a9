package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"

	retailopsserver "github.com/Apurer/go-retail-ops/go"
	"github.com/Apurer/go-retail-ops/internal/orchestrator"
	"github.com/Apurer/go-retail-ops/internal/orchestrator/adapters/audit"
	"github.com/Apurer/go-retail-ops/internal/orchestrator/adapters/authz"
	orchmemory "github.com/Apurer/go-retail-ops/internal/orchestrator/adapters/memory"
	platformobservability "github.com/Apurer/go-retail-ops/internal/platform/observability"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type nopStarter struct{}

func (nopStarter) ExecuteWorkflow(context.Context, client.StartWorkflowOptions, interface{}, ...interface{}) (client.WorkflowRun, error) {
	return nil, nil
}

func TestBuildAuditSink_SkipsUnavailableBackends(t *testing.T) {
	sink, cleanup := BuildAuditSink(Config{AuditSinks: []string{AuditSinkLog, AuditSinkPostgres}}, nil, nil, discardLogger())
	defer cleanup()
	assert.IsType(t, &audit.LogSink{}, sink)

	sink, cleanup = BuildAuditSink(Config{AuditSinks: []string{AuditSinkTemporal}}, nil, nil, discardLogger())
	defer cleanup()
	assert.IsType(t, &audit.LogSink{}, sink, "falls back to logging when nothing else is reachable")
}

func TestBuildAuditSink_CombinesSinks(t *testing.T) {
	sink, cleanup := BuildAuditSink(Config{AuditSinks: []string{AuditSinkLog, AuditSinkTemporal}}, nil, nopStarter{}, discardLogger())
	defer cleanup()

	fanout, ok := sink.(audit.Fanout)
	require.True(t, ok)
	assert.Len(t, fanout, 2)
}

func TestBuildIdempotencyStore_FallsBackToMemory(t *testing.T) {
	store, cleanup := BuildIdempotencyStore(context.Background(), Config{}, nil, discardLogger())
	defer cleanup()
	assert.IsType(t, &orchmemory.IdempotencyStore{}, store)
}

func TestEnsureBootstrapAdmin_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	services := BuildDomainServices(nil, &platformobservability.Instruments{Logger: discardLogger()})

	require.NoError(t, EnsureBootstrapAdmin(ctx, services.Users, "root", discardLogger()))
	require.NoError(t, EnsureBootstrapAdmin(ctx, services.Users, "root", discardLogger()))

	user, err := services.Users.Get(ctx, "root")
	require.NoError(t, err)
	assert.Len(t, user.Roles, 1)
}

// memoryStack assembles the API the way Run does, minus the network listener.
func memoryStack(t *testing.T) (*gin.Engine, *orchmemory.AuditSink) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	services := BuildDomainServices(nil, &platformobservability.Instruments{Logger: discardLogger()})
	require.NoError(t, EnsureBootstrapAdmin(ctx, services.Users, "root", discardLogger()))

	sink := orchmemory.NewAuditSink()
	orch := orchestrator.New(orchestrator.Dependencies{
		Inbound:     services.Inbound,
		Tickets:     services.Tickets,
		Stock:       services.Stock,
		Orders:      services.Orders,
		Users:       services.Users,
		Authorizer:  authz.NewRoleAuthorizer(services.Users, nil),
		Audit:       sink,
		Idempotency: orchmemory.NewIdempotencyStore(),
	})
	router := retailopsserver.NewRouter(retailopsserver.ApiHandleFunctions{
		InboundAPI:   retailopsserver.NewInboundAPI(orch, nil),
		TicketAPI:    retailopsserver.NewTicketAPI(orch, nil),
		StockAPI:     retailopsserver.NewStockAPI(orch, nil),
		DirectoryAPI: retailopsserver.NewDirectoryAPI(orch, nil),
	}, retailopsserver.RouterOptions{})
	return router, sink
}

func call(t *testing.T, router *gin.Engine, method, path, actor, key string, body any) (int, map[string]any) {
	t.Helper()
	var payload io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(retailopsserver.HeaderActorID, actor)
	if key != "" {
		req.Header.Set(retailopsserver.HeaderIdempotencyKey, key)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var decoded map[string]any
	if rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec.Code, decoded
}

func TestMemoryStack_InboundApprovalCreditsStockOnce(t *testing.T) {
	router, sink := memoryStack(t)

	status, _ := call(t, router, http.MethodPost, "/v1/stock", "root", "", gin.H{"productId": "SKU-1", "quantity": 2})
	require.Equal(t, http.StatusCreated, status)
	status, _ = call(t, router, http.MethodPost, "/v1/users", "root", "", gin.H{"id": "clerk", "displayName": "Clerk", "roles": []string{"staff"}})
	require.Equal(t, http.StatusCreated, status)
	status, _ = call(t, router, http.MethodPost, "/v1/users", "root", "", gin.H{"id": "boss", "displayName": "Boss", "roles": []string{"approver"}})
	require.Equal(t, http.StatusCreated, status)

	status, record := call(t, router, http.MethodPost, "/v1/inbound-records", "clerk", "", gin.H{
		"sourceType": "supplier",
		"items":      []gin.H{{"productId": "SKU-1", "quantity": 3}},
		"totalItems": 3,
	})
	require.Equal(t, http.StatusCreated, status)
	id, _ := record["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "clerk", record["createdBy"])

	status, _ = call(t, router, http.MethodPost, "/v1/inbound-records/"+id+"/approve", "clerk", "", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, approved := call(t, router, http.MethodPost, "/v1/inbound-records/"+id+"/approve", "boss", "approve-1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "approved", approved["status"])

	status, replay := call(t, router, http.MethodPost, "/v1/inbound-records/"+id+"/approve", "boss", "approve-1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, replay["alreadyFinalized"])

	status, entry := call(t, router, http.MethodGet, "/v1/stock/SKU-1", "boss", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(5), entry["quantity"])

	actions := map[string]int{}
	for _, event := range sink.Events() {
		actions[event.Action]++
	}
	assert.Equal(t, 1, actions["stock.registered"])
	assert.Equal(t, 1, actions["inbound.record.approved"])
}

func TestMemoryStack_UnknownActorIsNotFound(t *testing.T) {
	router, _ := memoryStack(t)

	status, problem := call(t, router, http.MethodGet, "/v1/stock/SKU-1", "ghost", "", nil)

	assert.Equal(t, http.StatusNotFound, status)
	assert.NotEmpty(t, problem["type"])
}

func TestBuildPublisher_OnlyBrokers(t *testing.T) {
	publisher, cleanup := BuildPublisher(Config{AuditSinks: []string{AuditSinkLog, AuditSinkPostgres}}, discardLogger())
	defer cleanup()
	assert.Nil(t, publisher)
}
