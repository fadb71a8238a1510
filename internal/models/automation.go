package models

import "time"

// Trigger types an automation rule can react to.
const (
	TriggerTaskCreated      = "task_created"
	TriggerTaskCompleted    = "task_completed"
	TriggerTaskMoved        = "task_moved"
	TriggerTaskAssigned     = "task_assigned"
	TriggerTaskDueDate      = "task_due_date"
	TriggerProjectCreated   = "project_created"
	TriggerProjectCompleted = "project_completed"
)

// Action types a rule can execute when its trigger fires.
const (
	ActionSendNotification   = "send_notification"
	ActionAssignTask         = "assign_task"
	ActionMoveTask           = "move_task"
	ActionCreateTask         = "create_task"
	ActionUpdateTaskPriority = "update_task_priority"
	ActionSendEmail          = "send_email"
)

// Outcome of a single rule execution attempt.
const (
	AutomationStatusSuccess = "success"
	AutomationStatusFailed  = "failed"
	AutomationStatusSkipped = "skipped"
)

// AutomationRule is a stored (trigger, condition, action) tuple owned by a
// user and optionally scoped to one project. A rule without a project is
// global to its creator.
type AutomationRule struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Name              string     `gorm:"not null" json:"name"`
	Description       string     `gorm:"type:text" json:"description"`
	TriggerType       string     `gorm:"index;not null" json:"trigger_type"`
	TriggerConditions string     `gorm:"type:text" json:"trigger_conditions"` // JSON: [{field,op,value}], empty = always satisfied
	ActionType        string     `gorm:"not null" json:"action_type"`
	ActionParameters  string     `gorm:"type:text" json:"action_parameters"` // JSON object consumed by the action handler
	Active            bool       `gorm:"default:true" json:"active"`
	CreatedBy         uint       `gorm:"index" json:"created_by"`
	ProjectID         *uint      `gorm:"index" json:"project_id"`
	ExecutionCount    int64      `gorm:"default:0" json:"execution_count"`
	LastExecutedAt    *time.Time `json:"last_executed_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	Creator User     `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Project *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
}

// AutomationLog records exactly one rule execution attempt. Rows are
// written once and never mutated; retention is an external concern.
type AutomationLog struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	RuleID          uint      `gorm:"index;not null" json:"rule_id"`
	Status          string    `gorm:"index" json:"status"` // success, failed, skipped
	ErrorMessage    string    `gorm:"type:text" json:"error_message"`
	TriggerData     string    `gorm:"type:text" json:"trigger_data"`  // serialized event payload
	ActionResult    string    `gorm:"type:text" json:"action_result"` // serialized handler ack, success only
	RelatedTaskID   *uint     `gorm:"index" json:"related_task_id"`
	TriggeredBy     *uint     `gorm:"index" json:"triggered_by"`
	ExecutedAt      time.Time `json:"executed_at"`
	ExecutionTimeMs int64     `json:"execution_time_ms"`

	Rule AutomationRule `gorm:"foreignKey:RuleID" json:"rule,omitempty"`
}

// IsValidTrigger reports whether s is a known trigger type.
func IsValidTrigger(s string) bool {
	switch s {
	case TriggerTaskCreated, TriggerTaskCompleted, TriggerTaskMoved,
		TriggerTaskAssigned, TriggerTaskDueDate,
		TriggerProjectCreated, TriggerProjectCompleted:
		return true
	default:
		return false
	}
}

// IsValidAction reports whether s is a known action type.
func IsValidAction(s string) bool {
	switch s {
	case ActionSendNotification, ActionAssignTask, ActionMoveTask,
		ActionCreateTask, ActionUpdateTaskPriority, ActionSendEmail:
		return true
	default:
		return false
	}
}
