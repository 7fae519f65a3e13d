package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabcore/mescontrol/internal/agents"
	"github.com/fabcore/mescontrol/internal/clock"
	"github.com/fabcore/mescontrol/internal/config"
	"github.com/fabcore/mescontrol/internal/lifecycle"
	"github.com/fabcore/mescontrol/internal/models"
	"github.com/fabcore/mescontrol/internal/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestGateway(t *testing.T) (*Gateway, repository.Repository, string) {
	t.Helper()
	repo := repository.NewMemory()
	fake := clock.NewFake(time.Now())
	agentSvc := agents.New(repo, fake, "test-secret")

	_, token, err := agentSvc.Register(context.Background(), models.AgentOperatorConsole, nil, []string{"admin"})
	require.NoError(t, err)

	cfg := config.Config{
		CORSAllowOrigins: []string{"*"},
		RateLimitMax:     1000,
		RateLimitWindow:  time.Minute,
	}
	gw := New(cfg, Deps{
		Repo:      repo,
		Clock:     fake,
		Agents:    agentSvc,
		Lifecycle: lifecycle.New(repo, fake, nil),
	})
	return gw, repo, token
}

func doRequest(gw *Gateway, method, path, body, token string) *httptest.ResponseRecorder {
	var reqBody *strings.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	} else {
		reqBody = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reqBody)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	gw.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthCheckNeedsNoAuth(t *testing.T) {
	gw, _, _ := newTestGateway(t)
	rec := doRequest(gw, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthzNeedsNoAuthAndReportsDisabledOptionalDeps(t *testing.T) {
	gw, _, _ := newTestGateway(t)
	rec := doRequest(gw, http.MethodGet, "/api/v1/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["repository"])
	assert.Equal(t, "disabled", body["message_bus"])
	assert.Equal(t, "disabled", body["leader_election"])
}

func TestProtectedRouteRejectsMissingToken(t *testing.T) {
	gw, _, _ := newTestGateway(t)
	rec := doRequest(gw, http.MethodGet, "/api/v1/machines", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRouteRejectsInvalidToken(t *testing.T) {
	gw, _, _ := newTestGateway(t)
	rec := doRequest(gw, http.MethodGet, "/api/v1/machines", "", "not-a-real-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListMachinesReturnsSeededEquipment(t *testing.T) {
	gw, repo, token := newTestGateway(t)
	require.NoError(t, repo.CreateEquipment(context.Background(), &models.Equipment{
		ID: uuid.New(), Name: "ETCH-01", Status: models.EquipmentIdle,
	}))

	rec := doRequest(gw, http.MethodGet, "/api/v1/machines", "", token)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Machines []models.Equipment `json:"machines"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Machines, 1)
	assert.Equal(t, "ETCH-01", out.Machines[0].Name)
}

func TestGetMachineNotFoundReturns404(t *testing.T) {
	gw, _, token := newTestGateway(t)
	rec := doRequest(gw, http.MethodGet, "/api/v1/machines/"+uuid.New().String(), "", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetMachineInvalidIDReturns400(t *testing.T) {
	gw, _, token := newTestGateway(t)
	rec := doRequest(gw, http.MethodGet, "/api/v1/machines/not-a-uuid", "", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPatchMachineUpdatesStatusAndZone(t *testing.T) {
	gw, repo, token := newTestGateway(t)
	eq := &models.Equipment{ID: uuid.New(), Name: "CVD-02", Status: models.EquipmentIdle, Zone: "fab-a"}
	require.NoError(t, repo.CreateEquipment(context.Background(), eq))

	rec := doRequest(gw, http.MethodPatch, "/api/v1/machines/"+eq.ID.String(), `{"status":"DOWN","zone":"fab-b"}`, token)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := repo.GetEquipment(context.Background(), eq.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EquipmentDown, got.Status)
	assert.Equal(t, "fab-b", got.Zone)
}

func TestCreateLotPersistsPendingLot(t *testing.T) {
	gw, repo, token := newTestGateway(t)
	body := `{"name":"LOT-X","wafer_count":25,"priority":2,"recipe_kind":"etch","estimated_duration_minutes":60}`

	rec := doRequest(gw, http.MethodPost, "/api/v1/jobs", body, token)
	require.Equal(t, http.StatusCreated, rec.Code)

	var lot models.Lot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lot))
	assert.Equal(t, models.LotPending, lot.Status)

	got, err := repo.GetLot(context.Background(), lot.ID)
	require.NoError(t, err)
	assert.Equal(t, "LOT-X", got.Name)
}

func TestCreateLotRejectsMissingRequiredField(t *testing.T) {
	gw, _, token := newTestGateway(t)
	rec := doRequest(gw, http.MethodPost, "/api/v1/jobs", `{"wafer_count":25}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPatchLotRejectsNonPendingLot(t *testing.T) {
	gw, repo, token := newTestGateway(t)
	lot := &models.Lot{ID: uuid.New(), Status: models.LotRunning}
	require.NoError(t, repo.CreateLot(context.Background(), lot))

	rec := doRequest(gw, http.MethodPatch, "/api/v1/jobs/"+lot.ID.String(), `{"priority":5}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListLotsFiltersByStatusQueryParam(t *testing.T) {
	gw, repo, token := newTestGateway(t)
	require.NoError(t, repo.CreateLot(context.Background(), &models.Lot{ID: uuid.New(), Status: models.LotPending}))
	require.NoError(t, repo.CreateLot(context.Background(), &models.Lot{ID: uuid.New(), Status: models.LotQueued}))

	rec := doRequest(gw, http.MethodGet, "/api/v1/jobs?status=QUEUED", "", token)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Jobs []models.Lot `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Jobs, 1)
	assert.Equal(t, models.LotQueued, out.Jobs[0].Status)
}

func TestStartLotTransitionsLotAndEquipmentTogether(t *testing.T) {
	gw, repo, token := newTestGateway(t)
	eq := &models.Equipment{ID: uuid.New(), Name: "ETCH-01", Status: models.EquipmentIdle}
	require.NoError(t, repo.CreateEquipment(context.Background(), eq))
	lot := &models.Lot{ID: uuid.New(), Status: models.LotQueued, AssignedEquipmentID: &eq.ID}
	require.NoError(t, repo.CreateLot(context.Background(), lot))

	rec := doRequest(gw, http.MethodPost, "/api/v1/jobs/"+lot.ID.String()+"/start", "", token)
	require.Equal(t, http.StatusOK, rec.Code)

	gotLot, err := repo.GetLot(context.Background(), lot.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LotRunning, gotLot.Status)

	gotEq, err := repo.GetEquipment(context.Background(), eq.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EquipmentRunning, gotEq.Status)
	require.NotNil(t, gotEq.CurrentLotID)
	assert.Equal(t, lot.ID, *gotEq.CurrentLotID)
}

func TestStartLotRejectsBusyEquipment(t *testing.T) {
	gw, repo, token := newTestGateway(t)
	eq := &models.Equipment{ID: uuid.New(), Name: "ETCH-01", Status: models.EquipmentRunning}
	require.NoError(t, repo.CreateEquipment(context.Background(), eq))
	lot := &models.Lot{ID: uuid.New(), Status: models.LotQueued, AssignedEquipmentID: &eq.ID}
	require.NoError(t, repo.CreateLot(context.Background(), lot))

	rec := doRequest(gw, http.MethodPost, "/api/v1/jobs/"+lot.ID.String()+"/start", "", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	gotLot, err := repo.GetLot(context.Background(), lot.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LotQueued, gotLot.Status, "a busy machine must not be forced into a second RUNNING lot")
}

func TestCompleteLotFreesEquipmentAndTallysWafers(t *testing.T) {
	gw, repo, token := newTestGateway(t)
	eq := &models.Equipment{ID: uuid.New(), Name: "ETCH-01", Status: models.EquipmentRunning}
	require.NoError(t, repo.CreateEquipment(context.Background(), eq))
	lot := &models.Lot{ID: uuid.New(), Status: models.LotRunning, AssignedEquipmentID: &eq.ID, WaferCount: 25}
	require.NoError(t, repo.CreateLot(context.Background(), lot))

	rec := doRequest(gw, http.MethodPost, "/api/v1/jobs/"+lot.ID.String()+"/complete", "", token)
	require.Equal(t, http.StatusOK, rec.Code)

	gotLot, err := repo.GetLot(context.Background(), lot.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LotCompleted, gotLot.Status)

	gotEq, err := repo.GetEquipment(context.Background(), eq.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EquipmentIdle, gotEq.Status)
	assert.Nil(t, gotEq.CurrentLotID)
	assert.Equal(t, int64(25), gotEq.TotalWafersProcessed)
}

func TestLifecycleToggleStartStopRoundTrip(t *testing.T) {
	gw, _, token := newTestGateway(t)

	rec := doRequest(gw, http.MethodPost, "/api/v1/jobs/lifecycle/stop", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, gw.LifecycleRunning())

	rec = doRequest(gw, http.MethodPost, "/api/v1/jobs/lifecycle/start", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gw.LifecycleRunning())
}
