package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adriano-Lengruber/flowtasks/internal/models"
	"github.com/Adriano-Lengruber/flowtasks/pkg/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// NotificationService persists per-user notifications and pushes them
// over the websocket hub on a best-effort basis.
type NotificationService struct {
	db     *gorm.DB
	logger *logrus.Logger
	hub    *WebSocketHub
}

func NewNotificationService(db *gorm.DB, logger *logrus.Logger) *NotificationService {
	if logger == nil {
		logger = logrus.New()
	}
	return &NotificationService{db: db, logger: logger}
}

// SetHub injects the optional realtime delivery channel.
func (s *NotificationService) SetHub(hub *WebSocketHub) {
	s.hub = hub
}

// Send stores one notification for userID and pushes it to any connected
// client. Storage failure is the caller's error; push failure is not.
func (s *NotificationService) Send(ctx context.Context, userID uint, category, message, refType string, refID uint, refTitle string) (*models.Notification, error) {
	n := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Category:  category,
		Message:   message,
		RefType:   refType,
		RefID:     refID,
		RefTitle:  refTitle,
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, err
	}
	if s.hub != nil {
		s.hub.SendToUser(userID, WebSocketMessage{
			Type:      "notification",
			Data:      n,
			Timestamp: time.Now(),
		})
	}
	return n, nil
}

// NotifyCommentCreated fans a "task comment" notification out to the
// task's assignee and the project owner. The comment's author is never
// notified about their own comment, and a recipient holding both roles
// receives a single notification.
func (s *NotificationService) NotifyCommentCreated(ctx context.Context, task *models.Task, projectOwnerID, authorID uint) {
	recipients := make(map[uint]struct{}, 2)
	if task.AssigneeID != nil {
		recipients[*task.AssigneeID] = struct{}{}
	}
	recipients[projectOwnerID] = struct{}{}
	delete(recipients, authorID)

	message := fmt.Sprintf("New comment on task %q", utils.TruncateTitle(task.Title, 80))
	for userID := range recipients {
		if _, err := s.Send(ctx, userID, "task_comment", message, "task", task.ID, task.Title); err != nil {
			s.logger.Warnf("notification: comment fan-out to user %d failed: %v", userID, err)
		}
	}
}

// List returns the caller's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID uint) ([]models.Notification, error) {
	var notifications []models.Notification
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkRead flags one of the caller's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID uint, id string) error {
	var n models.Notification
	if err := s.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("notification %s: %w", id, ErrNotFound)
		}
		return err
	}
	if n.UserID != userID {
		return fmt.Errorf("notification %s: %w", id, ErrPermissionDenied)
	}
	return s.db.WithContext(ctx).Model(&n).Update("read", true).Error
}
