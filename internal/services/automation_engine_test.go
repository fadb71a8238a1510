package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/Adriano-Lengruber/flowtasks/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newAutomationTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Section{},
		&models.Task{},
		&models.Notification{},
		&models.AutomationRule{},
		&models.AutomationLog{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func newTestEngine(db *gorm.DB, opts ...EngineOption) *AutomationEngine {
	logger := logrus.New()
	return NewAutomationEngine(
		NewGormRuleStore(db),
		NewJSONConditionEvaluator(logger),
		NewActionRegistry(db, NewNotificationService(db, logger), logger),
		NewAutomationLogStore(db, logger),
		logger,
		opts...,
	)
}

func mustCreateRule(t *testing.T, db *gorm.DB, rule *models.AutomationRule) *models.AutomationRule {
	t.Helper()
	if err := db.Create(rule).Error; err != nil {
		t.Fatalf("create rule: %v", err)
	}
	return rule
}

func ruleLogs(t *testing.T, db *gorm.DB, ruleID uint) []models.AutomationLog {
	t.Helper()
	var logs []models.AutomationLog
	if err := db.Where("rule_id = ?", ruleID).Order("id ASC").Find(&logs).Error; err != nil {
		t.Fatalf("load logs: %v", err)
	}
	return logs
}

func TestAutomationEngine_SuccessfulRun(t *testing.T) {
	db := newAutomationTestDB(t)
	engine := newTestEngine(db)

	task := &models.Task{Title: "Ship release", ProjectID: 7, Priority: "high", Status: "open"}
	if err := db.Create(task).Error; err != nil {
		t.Fatalf("create task: %v", err)
	}
	rule := mustCreateRule(t, db, &models.AutomationRule{
		Name:             "move to done",
		TriggerType:      models.TriggerTaskMoved,
		ActionType:       models.ActionMoveTask,
		ActionParameters: `{"section_id": 3}`,
		CreatedBy:        1,
	})

	actor := uint(1)
	engine.ExecuteAutomations(context.Background(), models.TriggerTaskMoved, AutomationPayload{
		"task_id":    task.ID,
		"project_id": uint(7),
	}, &actor)

	logs := ruleLogs(t, db, rule.ID)
	if len(logs) != 1 {
		t.Fatalf("expected 1 log row, got %d", len(logs))
	}
	entry := logs[0]
	if entry.Status != models.AutomationStatusSuccess {
		t.Fatalf("expected success, got %s (%s)", entry.Status, entry.ErrorMessage)
	}
	if entry.ErrorMessage != "" {
		t.Errorf("success log should have empty error message, got %q", entry.ErrorMessage)
	}
	if entry.ActionResult == "" {
		t.Error("success log should carry the action result")
	}
	var ack map[string]interface{}
	if err := json.Unmarshal([]byte(entry.ActionResult), &ack); err != nil {
		t.Fatalf("action result not valid json: %v", err)
	}
	if ack["action"] != models.ActionMoveTask {
		t.Errorf("expected action %s in ack, got %v", models.ActionMoveTask, ack["action"])
	}
	if entry.RelatedTaskID == nil || *entry.RelatedTaskID != task.ID {
		t.Error("expected related_task_id to point at the triggering task")
	}
	if entry.TriggerData == "" {
		t.Error("expected trigger payload to be recorded")
	}

	var updated models.AutomationRule
	db.First(&updated, rule.ID)
	if updated.ExecutionCount != 1 {
		t.Errorf("expected execution count 1, got %d", updated.ExecutionCount)
	}
	if updated.LastExecutedAt == nil {
		t.Error("expected last_executed_at to be set")
	}

	var movedTask models.Task
	db.First(&movedTask, task.ID)
	if movedTask.SectionID == nil || *movedTask.SectionID != 3 {
		t.Error("expected the action to move the task to section 3")
	}
}

func TestAutomationEngine_FailedActionStillLogged(t *testing.T) {
	db := newAutomationTestDB(t)
	engine := newTestEngine(db)

	rule := mustCreateRule(t, db, &models.AutomationRule{
		Name:        "assign without params",
		TriggerType: models.TriggerTaskCreated,
		ActionType:  models.ActionAssignTask,
		CreatedBy:   1,
	})

	engine.ExecuteAutomations(context.Background(), models.TriggerTaskCreated, AutomationPayload{
		"task_id": uint(99),
	}, nil)

	logs := ruleLogs(t, db, rule.ID)
	if len(logs) != 1 {
		t.Fatalf("expected 1 log row, got %d", len(logs))
	}
	if logs[0].Status != models.AutomationStatusFailed {
		t.Fatalf("expected failed, got %s", logs[0].Status)
	}
	if !strings.Contains(logs[0].ErrorMessage, "assignee_id") {
		t.Errorf("expected error to name the missing param, got %q", logs[0].ErrorMessage)
	}
	if logs[0].ActionResult != "" {
		t.Error("failed attempt must not record an action result")
	}

	var updated models.AutomationRule
	db.First(&updated, rule.ID)
	if updated.ExecutionCount != 0 {
		t.Errorf("failed attempt must not bump execution count, got %d", updated.ExecutionCount)
	}
	if updated.LastExecutedAt != nil {
		t.Error("failed attempt must not set last_executed_at")
	}
}

func TestAutomationEngine_MalformedConditionsSkip(t *testing.T) {
	db := newAutomationTestDB(t)
	engine := newTestEngine(db)

	rule := mustCreateRule(t, db, &models.AutomationRule{
		Name:              "broken conditions",
		TriggerType:       models.TriggerTaskCompleted,
		TriggerConditions: `{not json]`,
		ActionType:        models.ActionSendEmail,
		CreatedBy:         1,
	})

	engine.ExecuteAutomations(context.Background(), models.TriggerTaskCompleted, AutomationPayload{}, nil)

	logs := ruleLogs(t, db, rule.ID)
	if len(logs) != 1 {
		t.Fatalf("expected 1 log row, got %d", len(logs))
	}
	if logs[0].Status != models.AutomationStatusSkipped {
		t.Fatalf("expected skipped, got %s", logs[0].Status)
	}

	var updated models.AutomationRule
	db.First(&updated, rule.ID)
	if updated.ExecutionCount != 0 {
		t.Error("skipped attempt must not bump execution count")
	}
}

func TestAutomationEngine_MalformedActionParamsFail(t *testing.T) {
	db := newAutomationTestDB(t)
	engine := newTestEngine(db)

	rule := mustCreateRule(t, db, &models.AutomationRule{
		Name:             "broken params",
		TriggerType:      models.TriggerTaskCreated,
		ActionType:       models.ActionSendEmail,
		ActionParameters: `{"to":`,
		CreatedBy:        1,
	})

	engine.ExecuteAutomations(context.Background(), models.TriggerTaskCreated, AutomationPayload{}, nil)

	logs := ruleLogs(t, db, rule.ID)
	if len(logs) != 1 {
		t.Fatalf("expected 1 log row, got %d", len(logs))
	}
	if logs[0].Status != models.AutomationStatusFailed {
		t.Fatalf("expected failed, got %s", logs[0].Status)
	}
	if !strings.Contains(logs[0].ErrorMessage, "invalid action parameters") {
		t.Errorf("unexpected error message: %q", logs[0].ErrorMessage)
	}
}

func TestAutomationEngine_UnknownActionType(t *testing.T) {
	db := newAutomationTestDB(t)
	engine := newTestEngine(db)

	// Management APIs reject unknown actions; simulate a legacy row.
	rule := mustCreateRule(t, db, &models.AutomationRule{
		Name:        "legacy action",
		TriggerType: models.TriggerTaskCreated,
		ActionType:  "explode",
		CreatedBy:   1,
	})

	engine.ExecuteAutomations(context.Background(), models.TriggerTaskCreated, AutomationPayload{}, nil)

	logs := ruleLogs(t, db, rule.ID)
	if len(logs) != 1 {
		t.Fatalf("expected 1 log row, got %d", len(logs))
	}
	if logs[0].Status != models.AutomationStatusFailed {
		t.Fatalf("expected failed, got %s", logs[0].Status)
	}
	if !strings.Contains(logs[0].ErrorMessage, "explode") {
		t.Errorf("expected the unknown action type in the error, got %q", logs[0].ErrorMessage)
	}
}

func TestAutomationEngine_InactiveRuleNotMatched(t *testing.T) {
	db := newAutomationTestDB(t)
	engine := newTestEngine(db)

	rule := mustCreateRule(t, db, &models.AutomationRule{
		Name:        "paused",
		TriggerType: models.TriggerTaskCreated,
		ActionType:  models.ActionSendEmail,
		CreatedBy:   1,
	})
	// Active has a true default; flip it off after creation.
	if err := db.Model(rule).Update("active", false).Error; err != nil {
		t.Fatalf("deactivate rule: %v", err)
	}

	engine.ExecuteAutomations(context.Background(), models.TriggerTaskCreated, AutomationPayload{}, nil)

	if logs := ruleLogs(t, db, rule.ID); len(logs) != 0 {
		t.Fatalf("inactive rule must not run, got %d log rows", len(logs))
	}
}

func TestAutomationEngine_ProjectScoping(t *testing.T) {
	db := newAutomationTestDB(t)
	engine := newTestEngine(db)

	p1 := uint(1)
	p2 := uint(2)
	scoped := mustCreateRule(t, db, &models.AutomationRule{
		Name:        "project 1 only",
		TriggerType: models.TriggerTaskCreated,
		ActionType:  models.ActionSendEmail,
		ProjectID:   &p1,
		CreatedBy:   1,
	})
	other := mustCreateRule(t, db, &models.AutomationRule{
		Name:        "project 2 only",
		TriggerType: models.TriggerTaskCreated,
		ActionType:  models.ActionSendEmail,
		ProjectID:   &p2,
		CreatedBy:   1,
	})
	global := mustCreateRule(t, db, &models.AutomationRule{
		Name:        "everywhere",
		TriggerType: models.TriggerTaskCreated,
		ActionType:  models.ActionSendEmail,
		CreatedBy:   1,
	})

	engine.ExecuteAutomations(context.Background(), models.TriggerTaskCreated, AutomationPayload{
		"project_id": p1,
	}, nil)

	if logs := ruleLogs(t, db, scoped.ID); len(logs) != 1 {
		t.Errorf("rule scoped to the event's project should run once, got %d", len(logs))
	}
	if logs := ruleLogs(t, db, other.ID); len(logs) != 0 {
		t.Errorf("rule scoped to another project must not run, got %d", len(logs))
	}
	if logs := ruleLogs(t, db, global.ID); len(logs) != 1 {
		t.Errorf("global rule should run once, got %d", len(logs))
	}
}

func TestAutomationEngine_WrongTriggerTypeNotMatched(t *testing.T) {
	db := newAutomationTestDB(t)
	engine := newTestEngine(db)

	rule := mustCreateRule(t, db, &models.AutomationRule{
		Name:        "on completion",
		TriggerType: models.TriggerTaskCompleted,
		ActionType:  models.ActionSendEmail,
		CreatedBy:   1,
	})

	engine.ExecuteAutomations(context.Background(), models.TriggerTaskCreated, AutomationPayload{}, nil)

	if logs := ruleLogs(t, db, rule.ID); len(logs) != 0 {
		t.Fatalf("rule for another trigger must not run, got %d log rows", len(logs))
	}
}

func TestAutomationEngine_RuleFailureIsolated(t *testing.T) {
	db := newAutomationTestDB(t)
	engine := newTestEngine(db)

	failing := mustCreateRule(t, db, &models.AutomationRule{
		Name:        "will fail",
		TriggerType: models.TriggerTaskCreated,
		ActionType:  models.ActionAssignTask, // missing params and task
		CreatedBy:   1,
	})
	healthy := mustCreateRule(t, db, &models.AutomationRule{
		Name:        "will succeed",
		TriggerType: models.TriggerTaskCreated,
		ActionType:  models.ActionSendEmail,
		CreatedBy:   1,
	})

	engine.ExecuteAutomations(context.Background(), models.TriggerTaskCreated, AutomationPayload{}, nil)

	failLogs := ruleLogs(t, db, failing.ID)
	if len(failLogs) != 1 || failLogs[0].Status != models.AutomationStatusFailed {
		t.Fatalf("expected one failed log for the failing rule, got %+v", failLogs)
	}
	okLogs := ruleLogs(t, db, healthy.ID)
	if len(okLogs) != 1 || okLogs[0].Status != models.AutomationStatusSuccess {
		t.Fatalf("failure in one rule must not affect the next, got %+v", okLogs)
	}
}

// panicExecutor simulates an action handler crashing mid-flight.
type panicExecutor struct{}

func (panicExecutor) Execute(context.Context, string, map[string]interface{}, AutomationPayload) (map[string]interface{}, error) {
	panic("boom")
}

func TestAutomationEngine_PanicRecordedAsFailure(t *testing.T) {
	db := newAutomationTestDB(t)
	logger := logrus.New()
	engine := NewAutomationEngine(
		NewGormRuleStore(db),
		NewJSONConditionEvaluator(logger),
		panicExecutor{},
		NewAutomationLogStore(db, logger),
		logger,
	)

	rule := mustCreateRule(t, db, &models.AutomationRule{
		Name:        "crashes",
		TriggerType: models.TriggerTaskCreated,
		ActionType:  models.ActionSendEmail,
		CreatedBy:   1,
	})

	engine.ExecuteAutomations(context.Background(), models.TriggerTaskCreated, AutomationPayload{}, nil)

	logs := ruleLogs(t, db, rule.ID)
	if len(logs) != 1 {
		t.Fatalf("a panicking action must still produce one log row, got %d", len(logs))
	}
	if logs[0].Status != models.AutomationStatusFailed {
		t.Fatalf("expected failed, got %s", logs[0].Status)
	}
	if !strings.Contains(logs[0].ErrorMessage, "panic") {
		t.Errorf("expected panic message, got %q", logs[0].ErrorMessage)
	}
}

// slowExecutor blocks until the context is cancelled.
type slowExecutor struct{}

func (slowExecutor) Execute(ctx context.Context, _ string, _ map[string]interface{}, _ AutomationPayload) (map[string]interface{}, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Second):
		return map[string]interface{}{}, nil
	}
}

func TestAutomationEngine_ActionTimeout(t *testing.T) {
	db := newAutomationTestDB(t)
	logger := logrus.New()
	engine := NewAutomationEngine(
		NewGormRuleStore(db),
		NewJSONConditionEvaluator(logger),
		slowExecutor{},
		NewAutomationLogStore(db, logger),
		logger,
		WithActionTimeout(20*time.Millisecond),
	)

	rule := mustCreateRule(t, db, &models.AutomationRule{
		Name:        "slow",
		TriggerType: models.TriggerTaskCreated,
		ActionType:  models.ActionSendEmail,
		CreatedBy:   1,
	})

	engine.ExecuteAutomations(context.Background(), models.TriggerTaskCreated, AutomationPayload{}, nil)

	logs := ruleLogs(t, db, rule.ID)
	if len(logs) != 1 {
		t.Fatalf("expected 1 log row, got %d", len(logs))
	}
	if logs[0].Status != models.AutomationStatusFailed {
		t.Fatalf("a timed-out action must be recorded as failed, got %s", logs[0].Status)
	}
	if !strings.Contains(logs[0].ErrorMessage, "deadline") {
		t.Errorf("expected deadline error, got %q", logs[0].ErrorMessage)
	}
}

func TestToUint(t *testing.T) {
	tests := []struct {
		name   string
		in     interface{}
		want   uint
		wantOK bool
	}{
		{"uint", uint(5), 5, true},
		{"int", 7, 7, true},
		{"int64", int64(9), 9, true},
		{"float64", float64(11), 11, true},
		{"json number", json.Number("13"), 13, true},
		{"negative int", -1, 0, false},
		{"string", "5", 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := toUint(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("toUint(%v) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
