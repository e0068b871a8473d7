package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/offlineshelf/internal/tasks"
)

func setupTasksRouter(queue TaskQueue) *gin.Engine {
	tc := NewTasksController(queue)

	router := gin.New()
	router.GET("/api/tasks/types", tc.ListTaskTypes)
	router.GET("/api/tasks/:id", tc.GetTaskStatus)
	router.POST("/api/tasks/:type/run", tc.RunTask)
	return router
}

func TestTasksController_ListTaskTypes(t *testing.T) {
	router := setupTasksRouter(&mockQueue{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/tasks/types", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), tasks.QueueDownloadBook)
	assert.Contains(t, w.Body.String(), tasks.QueueVerifyStore)
}

func TestTasksController_GetTaskStatus(t *testing.T) {
	queue := &mockQueue{statuses: map[string]backlite.TaskStatus{"t1": backlite.TaskStatusSuccess}}
	router := setupTasksRouter(queue)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/tasks/t1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"t1","status":"success"}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/tasks/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTasksController_RunTask(t *testing.T) {
	t.Run("download requires a book id", func(t *testing.T) {
		router := setupTasksRouter(&mockQueue{})

		req := httptest.NewRequest("POST", "/api/tasks/download_book/run", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("enqueues a download from form data", func(t *testing.T) {
		queue := &mockQueue{}
		router := setupTasksRouter(queue)

		req := httptest.NewRequest("POST", "/api/tasks/download_book/run", strings.NewReader("book_id=b1&pdf_url=https%3A%2F%2Fx%2Fb1.pdf"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)
		require.Len(t, queue.tasks, 1)
		task := queue.tasks[0].(tasks.DownloadBookTask)
		assert.Equal(t, "b1", task.Book.ID)
		assert.Equal(t, "https://x/b1.pdf", task.PDFURL)
	})

	t.Run("enqueues verification", func(t *testing.T) {
		queue := &mockQueue{}
		router := setupTasksRouter(queue)

		req := httptest.NewRequest("POST", "/api/tasks/verify_store/run", strings.NewReader(`{"repair":true}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)
		require.Len(t, queue.tasks, 1)
		assert.Equal(t, tasks.VerifyStoreTask{Repair: true}, queue.tasks[0])
	})

	t.Run("rejects unknown types", func(t *testing.T) {
		router := setupTasksRouter(&mockQueue{})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/api/tasks/enrich_book/run", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "unknown task type")
	})

	t.Run("reports enqueue failure", func(t *testing.T) {
		router := setupTasksRouter(&mockQueue{enqueueErr: errors.New("db locked")})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/api/tasks/verify_store/run", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
