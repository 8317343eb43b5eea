package rest_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitapp/backend/internal/application/services"
	"github.com/orbitapp/backend/internal/infrastructure/database"
	"github.com/orbitapp/backend/internal/infrastructure/persistence"
	"github.com/orbitapp/backend/internal/interfaces/rest"
)

func newGuestRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	conn := database.NewFromDB(db)
	guests := services.NewGuestService(
		persistence.NewGuestRepository(db),
		persistence.NewTransactionManager(conn),
	)
	handler := rest.NewGuestHandler(guests)

	router := gin.New()
	router.POST("/api/public/guest", handler.Start)
	router.GET("/api/public/guest/:token", handler.Get)
	router.PATCH("/api/public/guest/:token/tasks/:taskId", handler.MoveTask)
	return router, mock
}

func TestGuestHandler_Start(t *testing.T) {
	router, mock := newGuestRouter(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO guest_projects").
		WillReturnResult(sqlmock.NewResult(1, 1))
	for i := 0; i < 3; i++ {
		mock.ExpectExec("INSERT INTO guest_tasks").
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/public/guest",
		strings.NewReader(`{"project_name": "Kitchen remodel"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			Token   string `json:"token"`
			Project struct {
				Name string `json:"name"`
			} `json:"project"`
			Tasks []json.RawMessage `json:"tasks"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data.Token)
	assert.Equal(t, "Kitchen remodel", resp.Data.Project.Name)
	assert.Len(t, resp.Data.Tasks, 3)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestHandler_Get_Expired(t *testing.T) {
	router, mock := newGuestRouter(t)

	rows := sqlmock.NewRows([]string{"id", "session_token", "name", "description", "expires_at", "created_at"}).
		AddRow("gp1", "stale-token", "My trial project", nil,
			time.Now().Add(-time.Hour), time.Now().Add(-25*time.Hour))
	mock.ExpectQuery("SELECT (.+) FROM guest_projects").
		WithArgs("stale-token").
		WillReturnRows(rows)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/public/guest/stale-token", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusGone, w.Code, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestHandler_Get_UnknownToken(t *testing.T) {
	router, mock := newGuestRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM guest_projects").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_token", "name", "description", "expires_at", "created_at"}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/public/guest/nope", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestHandler_MoveTask_BadStatus(t *testing.T) {
	router, _ := newGuestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/public/guest/tok/tasks/t1",
		strings.NewReader(`{"status": "submitted"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}
