package entity

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbmc/portal-api/internal/config"
	"github.com/kbmc/portal-api/internal/middleware"
	"github.com/kbmc/portal-api/internal/model"
	"github.com/kbmc/portal-api/internal/repository/memory"
	"github.com/kbmc/portal-api/internal/service/approval"
)

func setupRouter(t *testing.T) (*gin.Engine, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore([]string{"news", "tender"})
	store.AddEntity("news", 5, model.EntityStatusPending)
	svc := approval.NewService(store, nil, config.ApprovalConfig{}, nil, nil, nil)
	r := gin.New()
	r.Use(middleware.Validation(middleware.DefaultValidationConfig()))
	NewHandler(svc).RegisterRoutes(r)
	return r, store
}

func put(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPut, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSetStatus(t *testing.T) {
	r, store := setupRouter(t)

	w := put(r, "/edit_news/5", `{"status":1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	status, _ := store.EntityStatus("news", 5)
	assert.Equal(t, model.EntityStatusApproved, status)

	var body struct {
		Data statusResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, model.EntityStatusApproved, body.Data.Status)

	w = put(r, "/edit_news/5", `{"status":0}`)
	require.Equal(t, http.StatusOK, w.Code)
	status, _ = store.EntityStatus("news", 5)
	assert.Equal(t, model.EntityStatusRejected, status)
}

func TestSetStatusErrors(t *testing.T) {
	r, _ := setupRouter(t)

	assert.Equal(t, http.StatusNotFound, put(r, "/edit_news/6", `{"status":1}`).Code)
	assert.Equal(t, http.StatusNotFound, put(r, "/edit_tender/5", `{"status":1}`).Code)
	assert.Equal(t, http.StatusNotFound, put(r, "/edit_unknown/5", `{"status":1}`).Code)
	assert.Equal(t, http.StatusBadRequest, put(r, "/edit_news/5", `{"status":2}`).Code)
	assert.Equal(t, http.StatusBadRequest, put(r, "/edit_news/5", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, put(r, "/edit_news/x", `{"status":1}`).Code)
}

func TestSetStatusMissingField(t *testing.T) {
	r, _ := setupRouter(t)

	w := put(r, "/edit_news/5", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Message string                       `json:"message"`
		Errors  []middleware.ValidationError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Field is required", body.Message)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "status", body.Errors[0].Field)
}

func TestRoutesUseLowercaseKind(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := memory.NewStore([]string{"GeneralAdminAddYear"})
	store.AddEntity("GeneralAdminAddYear", 3, model.EntityStatusPending)
	svc := approval.NewService(store, nil, config.ApprovalConfig{}, nil, nil, nil)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r)

	w := put(r, "/edit_generaladminaddyear/3", `{"status":1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	status, _ := store.EntityStatus("generaladminaddyear", 3)
	assert.Equal(t, model.EntityStatusApproved, status)
}
