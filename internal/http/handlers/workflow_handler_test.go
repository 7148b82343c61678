// README: Workflow handler tests: auth, role gating and error mapping.
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"convoy/internal/http/handlers"
	httpmiddleware "convoy/internal/http/middleware"
	"convoy/internal/infra"
	"convoy/internal/modules/request"
	"convoy/internal/modules/workflow"
	"convoy/internal/types"
)

// stubVerifier maps fixed tokens to sessions.
type stubVerifier struct {
	sessions map[string]*infra.Session
}

func (s *stubVerifier) Verify(_ context.Context, token string) (*infra.Session, error) {
	if sess, ok := s.sessions[token]; ok {
		return sess, nil
	}
	return nil, infra.ErrSessionNotFound
}

// stubEngine returns canned results; it records the last command so tests can
// check the caller identity wiring.
type stubEngine struct {
	err         error
	req         *request.Request
	lastStart   *workflow.RequestStartCommand
	lastApprove *workflow.ApproveCommand
	lastReject  *workflow.RejectCommand
}

func (s *stubEngine) RequestStart(_ context.Context, cmd workflow.RequestStartCommand) (*request.Request, error) {
	s.lastStart = &cmd
	return s.req, s.err
}

func (s *stubEngine) RequestFinish(_ context.Context, cmd workflow.RequestFinishCommand) (*request.Request, error) {
	return s.req, s.err
}

func (s *stubEngine) ApproveStart(_ context.Context, cmd workflow.ApproveCommand) error {
	s.lastApprove = &cmd
	return s.err
}

func (s *stubEngine) RejectStart(_ context.Context, cmd workflow.RejectCommand) error {
	s.lastReject = &cmd
	return s.err
}

func (s *stubEngine) ApproveFinish(_ context.Context, cmd workflow.ApproveCommand) error {
	s.lastApprove = &cmd
	return s.err
}

func (s *stubEngine) RejectFinish(_ context.Context, cmd workflow.RejectCommand) error {
	s.lastReject = &cmd
	return s.err
}

func testVerifier() *stubVerifier {
	return &stubVerifier{sessions: map[string]*infra.Session{
		"driver-token":     {UserID: 1, Role: types.RoleTransportista},
		"supervisor-token": {UserID: 100, Role: types.RoleSupervisor},
	}}
}

func buildTestRouter(engine handlers.Workflow) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := handlers.NewWorkflowHandler(engine)
	api := r.Group("/api", httpmiddleware.Auth(testVerifier()))
	api.POST("/trips/:id/start-request", h.RequestStart)
	api.POST("/trips/:id/start-request/approve", h.ApproveStart)
	api.POST("/trips/:id/start-request/reject", h.RejectStart)
	api.POST("/trips/:id/finish-request", h.RequestFinish)
	api.POST("/trips/:id/finish-request/approve", h.ApproveFinish)
	api.POST("/trips/:id/finish-request/reject", h.RejectFinish)
	return r
}

func doRequest(r *gin.Engine, method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestStart_Unauthenticated(t *testing.T) {
	r := buildTestRouter(&stubEngine{})
	w := doRequest(r, http.MethodPost, "/api/trips/1/start-request", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(r, http.MethodPost, "/api/trips/1/start-request", nil, "bad-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestStart_UsesSessionIdentity(t *testing.T) {
	engine := &stubEngine{req: &request.Request{ID: 5, TripID: 1, Kind: request.KindStart, DriverID: 1, Status: request.StatusOpen, CreatedAt: time.Now()}}
	r := buildTestRouter(engine)

	w := doRequest(r, http.MethodPost, "/api/trips/1/start-request", nil, "driver-token")
	assert.Equal(t, http.StatusCreated, w.Code)
	if assert.NotNil(t, engine.lastStart) {
		assert.Equal(t, types.ID(1), engine.lastStart.TripID)
		assert.Equal(t, types.ID(1), engine.lastStart.DriverID)
	}
}

func TestRequestStart_ApproverRoleRejected(t *testing.T) {
	engine := &stubEngine{}
	r := buildTestRouter(engine)

	w := doRequest(r, http.MethodPost, "/api/trips/1/start-request", nil, "supervisor-token")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Nil(t, engine.lastStart, "engine must not be reached")
}

func TestRequestStart_CooldownMapsTo409(t *testing.T) {
	unblockAt := time.Now().Add(72 * time.Hour)
	engine := &stubEngine{err: &workflow.CooldownError{RemainingDays: 3, Reason: "missing permit", UnblockAt: unblockAt}}
	r := buildTestRouter(engine)

	w := doRequest(r, http.MethodPost, "/api/trips/1/start-request", nil, "driver-token")
	assert.Equal(t, http.StatusConflict, w.Code)

	var body map[string]any
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, 3, body["remaining_days"])
	assert.Equal(t, "missing permit", body["reason"])
}

func TestApprove_RaceLossMapsToResync(t *testing.T) {
	engine := &stubEngine{err: workflow.ErrAlreadyProcessed}
	r := buildTestRouter(engine)

	w := doRequest(r, http.MethodPost, "/api/trips/1/start-request/approve", nil, "supervisor-token")
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["resync"])
}

func TestApprove_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"forbidden", workflow.ErrForbidden, http.StatusForbidden},
		{"not found", workflow.ErrNotFound, http.StatusNotFound},
		{"not pending", workflow.ErrNotPending, http.StatusConflict},
		{"no open request", workflow.ErrNoOpenRequest, http.StatusConflict},
		{"vehicle busy", workflow.ErrVehicleBusy, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := buildTestRouter(&stubEngine{err: tc.err})
			w := doRequest(r, http.MethodPost, "/api/trips/1/start-request/approve", nil, "supervisor-token")
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestApprove_CarriesApproverIdentity(t *testing.T) {
	engine := &stubEngine{}
	r := buildTestRouter(engine)

	w := doRequest(r, http.MethodPost, "/api/trips/7/finish-request/approve", nil, "supervisor-token")
	assert.Equal(t, http.StatusOK, w.Code)
	if assert.NotNil(t, engine.lastApprove) {
		assert.Equal(t, types.ID(7), engine.lastApprove.TripID)
		assert.Equal(t, types.ID(100), engine.lastApprove.Approver.ID)
		assert.Equal(t, types.RoleSupervisor, engine.lastApprove.Approver.Role)
	}
}

func TestReject_PassesBody(t *testing.T) {
	engine := &stubEngine{}
	r := buildTestRouter(engine)

	w := doRequest(r, http.MethodPost, "/api/trips/1/start-request/reject",
		map[string]any{"reason": "overloaded axle", "cooldown_days": 5}, "supervisor-token")
	assert.Equal(t, http.StatusOK, w.Code)
	if assert.NotNil(t, engine.lastReject) {
		assert.Equal(t, "overloaded axle", engine.lastReject.Reason)
		assert.Equal(t, 5, engine.lastReject.CooldownDays)
	}
}

func TestReject_BadRequestMapsTo400(t *testing.T) {
	r := buildTestRouter(&stubEngine{err: workflow.ErrBadRequest})
	w := doRequest(r, http.MethodPost, "/api/trips/1/start-request/reject",
		map[string]any{"reason": "", "cooldown_days": 4}, "supervisor-token")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvalidTripIDMapsTo400(t *testing.T) {
	r := buildTestRouter(&stubEngine{})
	w := doRequest(r, http.MethodPost, "/api/trips/abc/start-request", nil, "driver-token")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
