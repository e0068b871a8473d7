package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/offlineshelf/internal/offline"
	"github.com/mrlokans/offlineshelf/internal/tasks"
)

// TasksController handles background job endpoints.
type TasksController struct {
	queue TaskQueue
}

// NewTasksController creates a new TasksController.
func NewTasksController(queue TaskQueue) *TasksController {
	return &TasksController{queue: queue}
}

// TaskTypeInfo describes a task type that can be triggered.
type TaskTypeInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// ListTaskTypes handles GET /api/tasks/types
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"task_types": []TaskTypeInfo{
			{Type: tasks.QueueDownloadBook, Description: "Download a book for offline reading"},
			{Type: tasks.QueueVerifyStore, Description: "Check stored offline copies and repair broken records"},
		},
	})
}

// GetTaskStatus handles GET /api/tasks/:id
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := strings.TrimSpace(c.Param("id"))
	if taskID == "" {
		respondBadRequest(c, "task id is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.queue.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status "+taskID)
		return
	}
	if status == backlite.TaskStatusNotFound {
		respondNotFound(c, "task")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": tasks.StatusName(status),
	})
}

// RunTaskRequest is the body of POST /api/tasks/:type/run.
type RunTaskRequest struct {
	BookID   string `json:"book_id,omitempty" form:"book_id"`
	Title    string `json:"title,omitempty" form:"title"`
	PDFURL   string `json:"pdf_url,omitempty" form:"pdf_url"`
	CoverURL string `json:"cover_url,omitempty" form:"cover_url"`
	Repair   bool   `json:"repair,omitempty" form:"repair"`
}

// RunTask handles POST /api/tasks/:type/run
func (tc *TasksController) RunTask(c *gin.Context) {
	taskType := c.Param("type")

	var req RunTaskRequest
	if c.ContentType() == "application/x-www-form-urlencoded" || c.ContentType() == "multipart/form-data" {
		_ = c.ShouldBind(&req)
	} else if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	var task backlite.Task
	switch taskType {
	case tasks.QueueDownloadBook:
		if strings.TrimSpace(req.BookID) == "" {
			respondBadRequest(c, "book_id is required for "+tasks.QueueDownloadBook)
			return
		}
		task = tasks.DownloadBookTask{
			Book:     offline.BookRef{ID: strings.TrimSpace(req.BookID), Title: req.Title},
			PDFURL:   req.PDFURL,
			CoverURL: req.CoverURL,
		}
	case tasks.QueueVerifyStore:
		task = tasks.VerifyStoreTask{Repair: req.Repair}
	default:
		respondBadRequest(c, fmt.Sprintf("unknown task type: %s", taskType))
		return
	}

	taskID, err := tc.queue.Enqueue(c.Request.Context(), task)
	if err != nil {
		respondInternalError(c, err, "enqueue "+taskType)
		return
	}

	respondAccepted(c, "task enqueued", gin.H{"task_id": taskID, "type": taskType})
}
