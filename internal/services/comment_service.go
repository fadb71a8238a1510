package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adriano-Lengruber/flowtasks/internal/models"
	"github.com/Adriano-Lengruber/flowtasks/pkg/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CommentService manages task comments. Creating a comment fans a
// notification out to the task's assignee and project owner; comments do
// not feed the automation engine.
type CommentService struct {
	db            *gorm.DB
	logger        *logrus.Logger
	notifications *NotificationService
}

func NewCommentService(db *gorm.DB, logger *logrus.Logger, notifications *NotificationService) *CommentService {
	if logger == nil {
		logger = logrus.New()
	}
	return &CommentService{db: db, logger: logger, notifications: notifications}
}

// CommentCreateRequest creates a comment on a task.
type CommentCreateRequest struct {
	Content string `json:"content" binding:"required"`
}

// CreateComment persists the comment and triggers the fan-out once the
// comment is durable.
func (s *CommentService) CreateComment(ctx context.Context, authorID, taskID uint, req *CommentCreateRequest) (*models.TaskComment, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	if !utils.ValidateContent(req.Content) {
		return nil, errors.New("comment content must be 1-4096 characters")
	}
	var task models.Task
	if err := s.db.WithContext(ctx).Preload("Project").First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("task %d: %w", taskID, ErrNotFound)
		}
		return nil, err
	}

	comment := &models.TaskComment{
		TaskID:    taskID,
		UserID:    authorID,
		Content:   req.Content,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, err
	}

	if s.notifications != nil {
		s.notifications.NotifyCommentCreated(ctx, &task, task.Project.OwnerID, authorID)
	}
	return comment, nil
}

// ListComments returns a task's comments in creation order.
func (s *CommentService) ListComments(ctx context.Context, taskID uint) ([]models.TaskComment, error) {
	var comments []models.TaskComment
	if err := s.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("id ASC").
		Preload("User").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}
