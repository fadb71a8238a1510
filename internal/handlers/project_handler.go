package handlers

import (
	"net/http"

	"github.com/Adriano-Lengruber/flowtasks/internal/services"

	"github.com/gin-gonic/gin"
)

// ProjectHandler exposes project CRUD plus completion.
type ProjectHandler struct {
	projects *services.ProjectService
}

func NewProjectHandler(projects *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

func (h *ProjectHandler) ListProjects(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		abortUnauthorized(c)
		return
	}
	projects, err := h.projects.ListProjects(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list projects", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *ProjectHandler) CreateProject(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		abortUnauthorized(c)
		return
	}
	var req services.ProjectCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	project, err := h.projects.CreateProject(c.Request.Context(), userID, &req)
	if err != nil {
		c.JSON(statusForError(err), ErrorResponse{Error: "Failed to create project", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid id", Message: err.Error()})
		return
	}
	project, err := h.projects.GetProject(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusForError(err), ErrorResponse{Error: "Failed to get project", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) UpdateProject(c *gin.Context) {
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
	var req services.ProjectUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	project, err := h.projects.UpdateProject(c.Request.Context(), userID, id, &req)
	if err != nil {
		c.JSON(statusForError(err), ErrorResponse{Error: "Failed to update project", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, project)
}

// CompleteProject marks a project completed and fires the matching trigger.
func (h *ProjectHandler) CompleteProject(c *gin.Context) {
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
	project, err := h.projects.CompleteProject(c.Request.Context(), userID, id)
	if err != nil {
		c.JSON(statusForError(err), ErrorResponse{Error: "Failed to complete project", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) DeleteProject(c *gin.Context) {
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
	if err := h.projects.DeleteProject(c.Request.Context(), userID, id); err != nil {
		c.JSON(statusForError(err), ErrorResponse{Error: "Failed to delete project", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

// RegisterProjectRoutes mounts the project routes.
func RegisterProjectRoutes(r *gin.RouterGroup, handler *ProjectHandler) {
	projects := r.Group("/projects")
	{
		projects.GET("", handler.ListProjects)
		projects.POST("", handler.CreateProject)
		projects.GET(":id", handler.GetProject)
		projects.PUT(":id", handler.UpdateProject)
		projects.POST(":id/complete", handler.CompleteProject)
		projects.DELETE(":id", handler.DeleteProject)
	}
}
