package services

import (
	"context"
	"strings"
	"testing"

	"github.com/Adriano-Lengruber/flowtasks/internal/models"

	"github.com/sirupsen/logrus"
)

func TestActionRegistry_UnknownAction(t *testing.T) {
	db := newAutomationTestDB(t)
	logger := logrus.New()
	registry := NewActionRegistry(db, NewNotificationService(db, logger), logger)

	_, err := registry.Execute(context.Background(), "teleport_task", nil, AutomationPayload{})
	if err == nil {
		t.Fatal("expected error for unknown action type")
	}
	if !strings.Contains(err.Error(), "teleport_task") {
		t.Errorf("error should name the action type, got %q", err.Error())
	}
}

func TestActionRegistry_RegisterOverride(t *testing.T) {
	db := newAutomationTestDB(t)
	logger := logrus.New()
	registry := NewActionRegistry(db, NewNotificationService(db, logger), logger)

	registry.Register(models.ActionSendEmail, func(ctx context.Context, params map[string]interface{}, payload AutomationPayload) (map[string]interface{}, error) {
		return map[string]interface{}{"overridden": true}, nil
	})

	ack, err := registry.Execute(context.Background(), models.ActionSendEmail, nil, AutomationPayload{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if ack["overridden"] != true {
		t.Error("expected the replacement handler to run")
	}
}

func TestActionRegistry_SendNotification(t *testing.T) {
	db := newAutomationTestDB(t)
	logger := logrus.New()
	registry := NewActionRegistry(db, NewNotificationService(db, logger), logger)

	t.Run("with recipient", func(t *testing.T) {
		ack, err := registry.Execute(context.Background(), models.ActionSendNotification,
			map[string]interface{}{"message": "heads up", "user_id": float64(42)},
			AutomationPayload{"task_id": uint(5)})
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if ack["message"] != "heads up" {
			t.Errorf("unexpected ack message: %v", ack["message"])
		}

		var stored []models.Notification
		db.Where("user_id = ?", 42).Find(&stored)
		if len(stored) != 1 {
			t.Fatalf("expected 1 stored notification, got %d", len(stored))
		}
		if stored[0].Category != "automation" {
			t.Errorf("expected automation category, got %s", stored[0].Category)
		}
		if stored[0].RefID != 5 {
			t.Errorf("expected notification to reference task 5, got %d", stored[0].RefID)
		}
	})

	t.Run("without recipient", func(t *testing.T) {
		ack, err := registry.Execute(context.Background(), models.ActionSendNotification,
			map[string]interface{}{}, AutomationPayload{})
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if ack["message"] != "automation rule fired" {
			t.Errorf("expected default message, got %v", ack["message"])
		}
	})
}

func TestActionRegistry_AssignTask(t *testing.T) {
	db := newAutomationTestDB(t)
	logger := logrus.New()
	registry := NewActionRegistry(db, NewNotificationService(db, logger), logger)

	task := &models.Task{Title: "needs owner", ProjectID: 1, Priority: "normal", Status: "open"}
	db.Create(task)

	t.Run("assigns", func(t *testing.T) {
		ack, err := registry.Execute(context.Background(), models.ActionAssignTask,
			map[string]interface{}{"assignee_id": float64(9)},
			AutomationPayload{"task_id": task.ID})
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if ack["assignee_id"] != uint(9) {
			t.Errorf("unexpected ack: %v", ack)
		}
		var updated models.Task
		db.First(&updated, task.ID)
		if updated.AssigneeID == nil || *updated.AssigneeID != 9 {
			t.Error("expected task to be assigned to user 9")
		}
	})

	t.Run("missing task in payload", func(t *testing.T) {
		_, err := registry.Execute(context.Background(), models.ActionAssignTask,
			map[string]interface{}{"assignee_id": float64(9)}, AutomationPayload{})
		if err == nil || !strings.Contains(err.Error(), "task_id") {
			t.Errorf("expected task_id error, got %v", err)
		}
	})

	t.Run("missing assignee param", func(t *testing.T) {
		_, err := registry.Execute(context.Background(), models.ActionAssignTask,
			map[string]interface{}{}, AutomationPayload{"task_id": task.ID})
		if err == nil || !strings.Contains(err.Error(), "assignee_id") {
			t.Errorf("expected assignee_id error, got %v", err)
		}
	})

	t.Run("task does not exist", func(t *testing.T) {
		_, err := registry.Execute(context.Background(), models.ActionAssignTask,
			map[string]interface{}{"assignee_id": float64(9)},
			AutomationPayload{"task_id": uint(4040)})
		if err == nil || !strings.Contains(err.Error(), "not found") {
			t.Errorf("expected not found error, got %v", err)
		}
	})
}

func TestActionRegistry_MoveTask(t *testing.T) {
	db := newAutomationTestDB(t)
	logger := logrus.New()
	registry := NewActionRegistry(db, NewNotificationService(db, logger), logger)

	task := &models.Task{Title: "movable", ProjectID: 1, Priority: "normal", Status: "open"}
	db.Create(task)

	ack, err := registry.Execute(context.Background(), models.ActionMoveTask,
		map[string]interface{}{"section_id": float64(2)},
		AutomationPayload{"task_id": task.ID})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if ack["section_id"] != uint(2) {
		t.Errorf("unexpected ack: %v", ack)
	}
	var updated models.Task
	db.First(&updated, task.ID)
	if updated.SectionID == nil || *updated.SectionID != 2 {
		t.Error("expected task moved to section 2")
	}
}

func TestActionRegistry_CreateTask(t *testing.T) {
	db := newAutomationTestDB(t)
	logger := logrus.New()
	registry := NewActionRegistry(db, NewNotificationService(db, logger), logger)

	t.Run("project from params", func(t *testing.T) {
		ack, err := registry.Execute(context.Background(), models.ActionCreateTask,
			map[string]interface{}{"project_id": float64(3), "title": "follow-up"},
			AutomationPayload{})
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		var created models.Task
		if err := db.First(&created, ack["task_id"]).Error; err != nil {
			t.Fatalf("load created task: %v", err)
		}
		if created.Title != "follow-up" || created.ProjectID != 3 {
			t.Errorf("unexpected task: %+v", created)
		}
	})

	t.Run("project from payload with default title", func(t *testing.T) {
		ack, err := registry.Execute(context.Background(), models.ActionCreateTask,
			map[string]interface{}{},
			AutomationPayload{"project_id": uint(8)})
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if ack["title"] != "Untitled task" {
			t.Errorf("expected default title, got %v", ack["title"])
		}
	})

	t.Run("no project anywhere", func(t *testing.T) {
		_, err := registry.Execute(context.Background(), models.ActionCreateTask,
			map[string]interface{}{}, AutomationPayload{})
		if err == nil || !strings.Contains(err.Error(), "project_id") {
			t.Errorf("expected project_id error, got %v", err)
		}
	})
}

func TestActionRegistry_UpdateTaskPriority(t *testing.T) {
	db := newAutomationTestDB(t)
	logger := logrus.New()
	registry := NewActionRegistry(db, NewNotificationService(db, logger), logger)

	task := &models.Task{Title: "reprioritize", ProjectID: 1, Priority: "normal", Status: "open"}
	db.Create(task)

	_, err := registry.Execute(context.Background(), models.ActionUpdateTaskPriority,
		map[string]interface{}{"priority": "urgent"},
		AutomationPayload{"task_id": task.ID})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	var updated models.Task
	db.First(&updated, task.ID)
	if updated.Priority != "urgent" {
		t.Errorf("expected urgent priority, got %s", updated.Priority)
	}

	_, err = registry.Execute(context.Background(), models.ActionUpdateTaskPriority,
		map[string]interface{}{}, AutomationPayload{"task_id": task.ID})
	if err == nil || !strings.Contains(err.Error(), "priority") {
		t.Errorf("expected priority error, got %v", err)
	}
}

func TestActionRegistry_SendEmailIsPermissive(t *testing.T) {
	db := newAutomationTestDB(t)
	logger := logrus.New()
	registry := NewActionRegistry(db, NewNotificationService(db, logger), logger)

	// No recipient, no subject: the handler still succeeds.
	ack, err := registry.Execute(context.Background(), models.ActionSendEmail,
		map[string]interface{}{}, AutomationPayload{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if ack["action"] != models.ActionSendEmail {
		t.Errorf("unexpected ack: %v", ack)
	}

	ack, err = registry.Execute(context.Background(), models.ActionSendEmail,
		map[string]interface{}{"to": "team@example.com", "subject": "done"},
		AutomationPayload{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if ack["to"] != "team@example.com" {
		t.Errorf("expected recipient echoed in ack, got %v", ack["to"])
	}
}
