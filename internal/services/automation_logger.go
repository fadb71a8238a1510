package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Adriano-Lengruber/flowtasks/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AutomationLogStore is the ExecutionLogger backed by the application DB.
// It serializes the trigger payload and action result to text so log rows
// stay readable across payload schema changes.
type AutomationLogStore struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewAutomationLogStore returns an ExecutionLogger over the given DB handle.
func NewAutomationLogStore(db *gorm.DB, logger *logrus.Logger) *AutomationLogStore {
	if logger == nil {
		logger = logrus.New()
	}
	return &AutomationLogStore{db: db, logger: logger}
}

func (s *AutomationLogStore) Record(ctx context.Context, rec ExecutionRecord) error {
	entry := &models.AutomationLog{
		RuleID:          rec.Rule.ID,
		Status:          rec.Status,
		ErrorMessage:    rec.ErrorMessage,
		TriggerData:     marshalLogField(rec.Payload),
		RelatedTaskID:   payloadTaskID(rec.Payload),
		TriggeredBy:     s.resolveUser(ctx, rec.TriggeredBy),
		ExecutedAt:      time.Now(),
		ExecutionTimeMs: rec.ElapsedMs,
	}
	if rec.Status == models.AutomationStatusSuccess && rec.ActionResult != nil {
		entry.ActionResult = marshalLogField(rec.ActionResult)
	}
	return s.db.WithContext(ctx).Create(entry).Error
}

// resolveUser keeps TriggeredBy unset when the id does not resolve to a
// user; a stale or system-originated actor must not fail the attempt.
func (s *AutomationLogStore) resolveUser(ctx context.Context, userID *uint) *uint {
	if userID == nil {
		return nil
	}
	var user models.User
	if err := s.db.WithContext(ctx).Select("id").First(&user, *userID).Error; err != nil {
		s.logger.Debugf("automation: triggering user %d not resolvable: %v", *userID, err)
		return nil
	}
	return &user.ID
}

func marshalLogField(v interface{}) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
