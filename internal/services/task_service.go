package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adriano-Lengruber/flowtasks/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TaskService manages task CRUD and is the main trigger source for the
// automation engine: create, move, assign, complete and due-date changes
// each fire their trigger after the mutation is persisted.
type TaskService struct {
	db         *gorm.DB
	logger     *logrus.Logger
	automation *AutomationEngine
}

func NewTaskService(db *gorm.DB, logger *logrus.Logger) *TaskService {
	if logger == nil {
		logger = logrus.New()
	}
	return &TaskService{db: db, logger: logger}
}

// SetAutomationEngine injects the engine. A nil engine means domain
// events go nowhere, which is what tests and early boot want.
func (s *TaskService) SetAutomationEngine(engine *AutomationEngine) {
	s.automation = engine
}

// TaskCreateRequest creates a task.
type TaskCreateRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	ProjectID   uint       `json:"project_id" binding:"required"`
	SectionID   *uint      `json:"section_id"`
	AssigneeID  *uint      `json:"assignee_id"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
}

// TaskUpdateRequest updates a task. Nil fields are left untouched.
type TaskUpdateRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	SectionID   *uint      `json:"section_id"`
	AssigneeID  *uint      `json:"assignee_id"`
	Priority    *string    `json:"priority"`
	Status      *string    `json:"status"`
	DueDate     *time.Time `json:"due_date"`
}

// TaskListRequest filters the task listing.
type TaskListRequest struct {
	Page       int    `form:"page,default=1"`
	PageSize   int    `form:"page_size,default=20"`
	ProjectID  *uint  `form:"project_id"`
	SectionID  *uint  `form:"section_id"`
	AssigneeID *uint  `form:"assignee_id"`
	Status     string `form:"status"`
	Priority   string `form:"priority"`
}

// CreateTask persists a task and fires task_created (and task_due_date
// when the task arrives with a due date already set).
func (s *TaskService) CreateTask(ctx context.Context, actorID uint, req *TaskCreateRequest) (*models.Task, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	priority := req.Priority
	if priority == "" {
		priority = "normal"
	}
	task := &models.Task{
		Title:       req.Title,
		Description: req.Description,
		ProjectID:   req.ProjectID,
		SectionID:   req.SectionID,
		AssigneeID:  req.AssigneeID,
		CreatedBy:   actorID,
		Priority:    priority,
		Status:      "open",
		DueDate:     req.DueDate,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, err
	}

	s.fireTrigger(ctx, models.TriggerTaskCreated, task, actorID)
	if task.DueDate != nil {
		s.fireTrigger(ctx, models.TriggerTaskDueDate, task, actorID)
	}
	return task, nil
}

// UpdateTask applies the changes and fires one trigger per observed
// transition: section change -> task_moved, assignee change ->
// task_assigned, status flip to completed -> task_completed, due-date
// change -> task_due_date.
func (s *TaskService) UpdateTask(ctx context.Context, actorID, id uint, req *TaskUpdateRequest) (*models.Task, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	var task models.Task
	if err := s.db.WithContext(ctx).First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
		}
		return nil, err
	}

	var triggers []string
	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.SectionID != nil && !uintPtrEqual(task.SectionID, req.SectionID) {
		task.SectionID = req.SectionID
		triggers = append(triggers, models.TriggerTaskMoved)
	}
	if req.AssigneeID != nil && !uintPtrEqual(task.AssigneeID, req.AssigneeID) {
		task.AssigneeID = req.AssigneeID
		triggers = append(triggers, models.TriggerTaskAssigned)
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.Status != nil && *req.Status != task.Status {
		task.Status = *req.Status
		if *req.Status == "completed" {
			now := time.Now()
			task.CompletedAt = &now
			triggers = append(triggers, models.TriggerTaskCompleted)
		} else {
			task.CompletedAt = nil
		}
	}
	if req.DueDate != nil && !timePtrEqual(task.DueDate, req.DueDate) {
		task.DueDate = req.DueDate
		triggers = append(triggers, models.TriggerTaskDueDate)
	}

	task.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(&task).Error; err != nil {
		return nil, err
	}

	for _, trigger := range triggers {
		s.fireTrigger(ctx, trigger, &task, actorID)
	}
	return &task, nil
}

// DeleteTask soft-deletes a task. Deletion fires no automation trigger.
func (s *TaskService) DeleteTask(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Task{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return nil
}

// GetTask loads one task with its associations.
func (s *TaskService) GetTask(ctx context.Context, id uint) (*models.Task, error) {
	var task models.Task
	if err := s.db.WithContext(ctx).
		Preload("Project").
		Preload("Section").
		Preload("Assignee").
		First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &task, nil
}

// ListTasks pages through tasks with optional filters.
func (s *TaskService) ListTasks(ctx context.Context, req *TaskListRequest) ([]models.Task, int64, error) {
	if req == nil {
		req = &TaskListRequest{Page: 1, PageSize: 20}
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		req.PageSize = 20
	}

	q := s.db.WithContext(ctx).Model(&models.Task{})
	if req.ProjectID != nil {
		q = q.Where("project_id = ?", *req.ProjectID)
	}
	if req.SectionID != nil {
		q = q.Where("section_id = ?", *req.SectionID)
	}
	if req.AssigneeID != nil {
		q = q.Where("assignee_id = ?", *req.AssigneeID)
	}
	if req.Status != "" {
		q = q.Where("status = ?", req.Status)
	}
	if req.Priority != "" {
		q = q.Where("priority = ?", req.Priority)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var tasks []models.Task
	if err := q.Order("id DESC").
		Offset((req.Page - 1) * req.PageSize).
		Limit(req.PageSize).
		Find(&tasks).Error; err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// fireTrigger hands the event to the automation engine. The engine never
// returns an error to the trigger source; execution outcomes live in the
// automation log.
func (s *TaskService) fireTrigger(ctx context.Context, trigger string, task *models.Task, actorID uint) {
	if s.automation == nil {
		return
	}
	payload := AutomationPayload{
		"task_id":    task.ID,
		"project_id": task.ProjectID,
		"title":      task.Title,
		"priority":   task.Priority,
		"status":     task.Status,
	}
	s.automation.ExecuteAutomations(ctx, trigger, payload, &actorID)
}

func uintPtrEqual(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
