package handlers

import (
	"net/http"

	"github.com/Adriano-Lengruber/flowtasks/internal/services"

	"github.com/gin-gonic/gin"
)

// TaskHandler exposes task CRUD and task comments.
type TaskHandler struct {
	tasks    *services.TaskService
	comments *services.CommentService
}

func NewTaskHandler(tasks *services.TaskService, comments *services.CommentService) *TaskHandler {
	return &TaskHandler{tasks: tasks, comments: comments}
}

func (h *TaskHandler) ListTasks(c *gin.Context) {
	var req services.TaskListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	tasks, total, err := h.tasks.ListTasks(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list tasks", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "total": total})
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		abortUnauthorized(c)
		return
	}
	var req services.TaskCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	task, err := h.tasks.CreateTask(c.Request.Context(), userID, &req)
	if err != nil {
		c.JSON(statusForError(err), ErrorResponse{Error: "Failed to create task", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid id", Message: err.Error()})
		return
	}
	task, err := h.tasks.GetTask(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusForError(err), ErrorResponse{Error: "Failed to get task", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		abortUnauthorized(c)
		return
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid id", Message: err.Error()})
		return
	}
	var req services.TaskUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	task, err := h.tasks.UpdateTask(c.Request.Context(), userID, id, &req)
	if err != nil {
		c.JSON(statusForError(err), ErrorResponse{Error: "Failed to update task", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid id", Message: err.Error()})
		return
	}
	if err := h.tasks.DeleteTask(c.Request.Context(), id); err != nil {
		c.JSON(statusForError(err), ErrorResponse{Error: "Failed to delete task", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *TaskHandler) ListComments(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid id", Message: err.Error()})
		return
	}
	comments, err := h.comments.ListComments(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list comments", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (h *TaskHandler) CreateComment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		abortUnauthorized(c)
		return
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid id", Message: err.Error()})
		return
	}
	var req services.CommentCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	comment, err := h.comments.CreateComment(c.Request.Context(), userID, id, &req)
	if err != nil {
		c.JSON(statusForError(err), ErrorResponse{Error: "Failed to create comment", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// RegisterTaskRoutes mounts task and comment routes.
func RegisterTaskRoutes(r *gin.RouterGroup, handler *TaskHandler) {
	tasks := r.Group("/tasks")
	{
		tasks.GET("", handler.ListTasks)
		tasks.POST("", handler.CreateTask)
		tasks.GET(":id", handler.GetTask)
		tasks.PUT(":id", handler.UpdateTask)
		tasks.DELETE(":id", handler.DeleteTask)
		tasks.GET(":id/comments", handler.ListComments)
		tasks.POST(":id/comments", handler.CreateComment)
	}
}
