package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Adriano-Lengruber/flowtasks/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ActionError marks a failure inside the action executor, carrying the
// action type it belongs to. The engine converts it into a failed log row.
type ActionError struct {
	ActionType string
	Reason     string
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %s: %s", e.ActionType, e.Reason)
}

// ActionHandler executes one action kind against the triggering payload
// and returns a small acknowledgement for the audit log.
type ActionHandler func(ctx context.Context, params map[string]interface{}, payload AutomationPayload) (map[string]interface{}, error)

// ActionRegistry dispatches action types to registered handlers. The
// built-in handlers cover the supported action kinds; Register allows
// overriding or extending them without touching the engine.
type ActionRegistry struct {
	db            *gorm.DB
	notifications *NotificationService
	logger        *logrus.Logger
	handlers      map[string]ActionHandler
}

// NewActionRegistry builds a registry with the built-in handlers.
func NewActionRegistry(db *gorm.DB, notifications *NotificationService, logger *logrus.Logger) *ActionRegistry {
	if logger == nil {
		logger = logrus.New()
	}
	r := &ActionRegistry{
		db:            db,
		notifications: notifications,
		logger:        logger,
		handlers:      make(map[string]ActionHandler),
	}
	r.Register(models.ActionSendNotification, r.sendNotification)
	r.Register(models.ActionAssignTask, r.assignTask)
	r.Register(models.ActionMoveTask, r.moveTask)
	r.Register(models.ActionCreateTask, r.createTask)
	r.Register(models.ActionUpdateTaskPriority, r.updateTaskPriority)
	r.Register(models.ActionSendEmail, r.sendEmail)
	return r
}

// Register binds a handler to an action type, replacing any existing one.
func (r *ActionRegistry) Register(actionType string, h ActionHandler) {
	r.handlers[actionType] = h
}

// Execute dispatches to the handler for actionType. Unknown types fail
// with an ActionError naming the type.
func (r *ActionRegistry) Execute(ctx context.Context, actionType string, params map[string]interface{}, payload AutomationPayload) (map[string]interface{}, error) {
	h, ok := r.handlers[actionType]
	if !ok {
		return nil, &ActionError{ActionType: actionType, Reason: "unsupported action type"}
	}
	return h(ctx, params, payload)
}

func (r *ActionRegistry) sendNotification(ctx context.Context, params map[string]interface{}, payload AutomationPayload) (map[string]interface{}, error) {
	message, _ := params["message"].(string)
	if message == "" {
		message = "automation rule fired"
	}
	ack := map[string]interface{}{
		"action":  models.ActionSendNotification,
		"message": message,
	}
	// Recipient is optional; without one the notification only reaches
	// the operational log.
	if userID, ok := toUint(params["user_id"]); ok && r.notifications != nil {
		var refID uint
		if taskID := payloadTaskID(payload); taskID != nil {
			refID = *taskID
		}
		if _, err := r.notifications.Send(ctx, userID, "automation", message, "task", refID, ""); err != nil {
			return nil, &ActionError{ActionType: models.ActionSendNotification, Reason: err.Error()}
		}
		ack["user_id"] = userID
	} else {
		r.logger.Infof("automation notify: %s", message)
	}
	return ack, nil
}

func (r *ActionRegistry) assignTask(ctx context.Context, params map[string]interface{}, payload AutomationPayload) (map[string]interface{}, error) {
	taskID := payloadTaskID(payload)
	if taskID == nil {
		return nil, &ActionError{ActionType: models.ActionAssignTask, Reason: "payload has no task_id"}
	}
	assigneeID, ok := toUint(params["assignee_id"])
	if !ok {
		return nil, &ActionError{ActionType: models.ActionAssignTask, Reason: "assignee_id param required"}
	}
	if err := r.updateTask(ctx, *taskID, map[string]interface{}{"assignee_id": assigneeID}); err != nil {
		return nil, &ActionError{ActionType: models.ActionAssignTask, Reason: err.Error()}
	}
	return map[string]interface{}{
		"action":      models.ActionAssignTask,
		"task_id":     *taskID,
		"assignee_id": assigneeID,
	}, nil
}

func (r *ActionRegistry) moveTask(ctx context.Context, params map[string]interface{}, payload AutomationPayload) (map[string]interface{}, error) {
	taskID := payloadTaskID(payload)
	if taskID == nil {
		return nil, &ActionError{ActionType: models.ActionMoveTask, Reason: "payload has no task_id"}
	}
	sectionID, ok := toUint(params["section_id"])
	if !ok {
		return nil, &ActionError{ActionType: models.ActionMoveTask, Reason: "section_id param required"}
	}
	if err := r.updateTask(ctx, *taskID, map[string]interface{}{"section_id": sectionID}); err != nil {
		return nil, &ActionError{ActionType: models.ActionMoveTask, Reason: err.Error()}
	}
	return map[string]interface{}{
		"action":     models.ActionMoveTask,
		"task_id":    *taskID,
		"section_id": sectionID,
	}, nil
}

func (r *ActionRegistry) createTask(ctx context.Context, params map[string]interface{}, payload AutomationPayload) (map[string]interface{}, error) {
	if r.db == nil {
		return nil, &ActionError{ActionType: models.ActionCreateTask, Reason: "database not available"}
	}
	projectID, ok := toUint(params["project_id"])
	if !ok {
		if pid := payloadProjectID(payload); pid != nil {
			projectID, ok = *pid, true
		}
	}
	if !ok {
		return nil, &ActionError{ActionType: models.ActionCreateTask, Reason: "project_id required"}
	}
	title, _ := params["title"].(string)
	if title == "" {
		title = "Untitled task"
	}
	task := &models.Task{
		Title:     title,
		ProjectID: projectID,
		Priority:  "normal",
		Status:    "open",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if sectionID, ok := toUint(params["section_id"]); ok {
		task.SectionID = &sectionID
	}
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, &ActionError{ActionType: models.ActionCreateTask, Reason: err.Error()}
	}
	return map[string]interface{}{
		"action":  models.ActionCreateTask,
		"task_id": task.ID,
		"title":   title,
	}, nil
}

func (r *ActionRegistry) updateTaskPriority(ctx context.Context, params map[string]interface{}, payload AutomationPayload) (map[string]interface{}, error) {
	taskID := payloadTaskID(payload)
	if taskID == nil {
		return nil, &ActionError{ActionType: models.ActionUpdateTaskPriority, Reason: "payload has no task_id"}
	}
	priority, _ := params["priority"].(string)
	if priority == "" {
		return nil, &ActionError{ActionType: models.ActionUpdateTaskPriority, Reason: "priority param required"}
	}
	if err := r.updateTask(ctx, *taskID, map[string]interface{}{"priority": priority}); err != nil {
		return nil, &ActionError{ActionType: models.ActionUpdateTaskPriority, Reason: err.Error()}
	}
	return map[string]interface{}{
		"action":   models.ActionUpdateTaskPriority,
		"task_id":  *taskID,
		"priority": priority,
	}, nil
}

// sendEmail has no real mail transport behind it yet; it acknowledges
// whatever recipient was configured without validating it, matching the
// permissive contract of the original feature.
func (r *ActionRegistry) sendEmail(ctx context.Context, params map[string]interface{}, payload AutomationPayload) (map[string]interface{}, error) {
	recipient, _ := params["to"].(string)
	subject, _ := params["subject"].(string)
	r.logger.Infof("automation email queued: to=%q subject=%q", recipient, subject)
	return map[string]interface{}{
		"action": models.ActionSendEmail,
		"to":     recipient,
	}, nil
}

func (r *ActionRegistry) updateTask(ctx context.Context, taskID uint, fields map[string]interface{}) error {
	if r.db == nil {
		return fmt.Errorf("database not available")
	}
	result := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ?", taskID).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("task %d not found", taskID)
	}
	return nil
}
