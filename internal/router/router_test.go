package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbmc/portal-api/internal/config"
	"github.com/kbmc/portal-api/internal/handler/entity"
	"github.com/kbmc/portal-api/internal/handler/health"
	"github.com/kbmc/portal-api/internal/handler/notification"
	"github.com/kbmc/portal-api/internal/handler/pending"
	promhandler "github.com/kbmc/portal-api/internal/handler/prometheus"
	"github.com/kbmc/portal-api/internal/middleware"
	"github.com/kbmc/portal-api/internal/model"
	"github.com/kbmc/portal-api/internal/repository/memory"
	"github.com/kbmc/portal-api/internal/service/approval"
	"github.com/kbmc/portal-api/internal/service/delivery"
	"github.com/kbmc/portal-api/internal/service/event"
	"github.com/kbmc/portal-api/pkg/auth"
	"github.com/kbmc/portal-api/pkg/logger"
	"github.com/kbmc/portal-api/pkg/metrics"
)

func newTestRouter(t *testing.T, authMW *middleware.AuthMiddleware) (*gin.Engine, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore([]string{"news"})
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics("portal", reg)
	deliverySvc := delivery.NewService(store.Delivered(), time.Second, m)
	approvalSvc := approval.NewService(store, event.NewEventService(), config.ApprovalConfig{Atomic: true}, deliverySvc, m, logger.Nop())

	r := NewRouter(
		logger.Nop(),
		authMW,
		health.NewHandler(nil),
		promhandler.New(reg, "portal"),
		notification.NewHandler(deliverySvc),
		pending.NewHandler(approvalSvc),
		entity.NewHandler(approvalSvc),
		RouterConfig{CORSConfig: middleware.DefaultCORSConfig(), RequestTimeout: time.Second},
	)
	r.Setup()
	return r.Engine(), store
}

func call(t *testing.T, r *gin.Engine, method, path string, body interface{}, token string) (*httptest.ResponseRecorder, json.RawMessage) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env.Data
}

func TestApprovalFlowEndToEnd(t *testing.T) {
	r, store := newTestRouter(t, nil)
	store.AddEntity("news", 3, model.EntityStatusPending)

	w, data := call(t, r, http.MethodPost, "/admin-notifications", gin.H{
		"new_id": 3, "name": "news", "role": "finance", "description": "Budget Q1",
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var p model.PendingNotification
	require.NoError(t, json.Unmarshal(data, &p))

	w, _ = call(t, r, http.MethodGet, "/notification/unread-count?role=finance", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = call(t, r, http.MethodPost, fmt.Sprintf("/admin-notifications/%d/approve", p.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderXRequestID))

	w, _ = call(t, r, http.MethodGet, "/notification?role=finance", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []model.DeliveredNotification
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Budget Q1 has been successfully approved.", list[0].Description)

	// the cached count is invalidated by the approval
	w, data = call(t, r, http.MethodGet, "/notification/unread-count?role=finance", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"role":"finance","unread":1}`, string(data))

	w, _ = call(t, r, http.MethodGet, "/notification?role=admin", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w, _ = call(t, r, http.MethodGet, "/admin-notifications", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w, _ = call(t, r, http.MethodPut, "/edit_news/3", gin.H{"status": 0}, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = call(t, r, http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = call(t, r, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "portal_approval_decisions_total")
}

func TestAuthenticatedRoutes(t *testing.T) {
	roles := auth.NewJWTService("secret", "department")
	r, _ := newTestRouter(t, middleware.NewAuthMiddleware(roles))

	w, _ := call(t, r, http.MethodGet, "/notification", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = call(t, r, http.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	token, err := roles.GenerateToken("u-1", "hr", time.Minute)
	require.NoError(t, err)
	w, _ = call(t, r, http.MethodGet, "/notification", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = call(t, r, http.MethodGet, "/notification?role=finance", nil, token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"status":"error","message":"role does not match token"}`, w.Body.String())
}

func TestValidationMessagesReachClient(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w, _ := call(t, r, http.MethodPost, "/notification", gin.H{"heading": "Approved", "description": "x", "role": " "}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"status":"error","message":"Invalid role name","errors":[{"field":"role","message":"Invalid role name"}]}`, w.Body.String())

	w, _ = call(t, r, http.MethodPost, "/notification", gin.H{"heading": "Approved", "description": "x", "role": "General Admin Department"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
