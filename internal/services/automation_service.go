package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Adriano-Lengruber/flowtasks/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AutomationService owns the management surface of automation rules:
// create, update, toggle, delete and log listing. Only the rule's creator
// may touch a rule; execution itself lives in AutomationEngine.
type AutomationService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewAutomationService(db *gorm.DB, logger *logrus.Logger) *AutomationService {
	if logger == nil {
		logger = logrus.New()
	}
	return &AutomationService{db: db, logger: logger}
}

// AutomationRuleRequest creates a rule. Conditions and parameters arrive
// structured and are serialized into the rule's text columns, so malformed
// blobs are rejected here instead of at execution time.
type AutomationRuleRequest struct {
	Name        string                 `json:"name" binding:"required"`
	Description string                 `json:"description"`
	TriggerType string                 `json:"trigger_type" binding:"required"`
	ActionType  string                 `json:"action_type" binding:"required"`
	Conditions  []RuleCondition        `json:"conditions"`
	Parameters  map[string]interface{} `json:"parameters"`
	ProjectID   *uint                  `json:"project_id"`
	Active      *bool                  `json:"active"`
}

// AutomationRuleUpdateRequest mutates an existing rule. Nil fields are
// left untouched.
type AutomationRuleUpdateRequest struct {
	Name        *string                `json:"name"`
	Description *string                `json:"description"`
	Conditions  []RuleCondition        `json:"conditions"`
	Parameters  map[string]interface{} `json:"parameters"`
	Active      *bool                  `json:"active"`
}

// CreateRule stores a new rule owned by userID. A project-scoped rule
// requires the caller to own the project.
func (s *AutomationService) CreateRule(ctx context.Context, userID uint, req *AutomationRuleRequest) (*models.AutomationRule, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	if !models.IsValidTrigger(req.TriggerType) {
		return nil, fmt.Errorf("unsupported trigger type: %s", req.TriggerType)
	}
	if !models.IsValidAction(req.ActionType) {
		return nil, fmt.Errorf("unsupported action type: %s", req.ActionType)
	}

	if req.ProjectID != nil {
		var project models.Project
		if err := s.db.WithContext(ctx).First(&project, *req.ProjectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("project %d: %w", *req.ProjectID, ErrNotFound)
			}
			return nil, err
		}
		if project.OwnerID != userID {
			return nil, fmt.Errorf("project %d: %w", *req.ProjectID, ErrPermissionDenied)
		}
	}

	condJSON, err := marshalConditions(req.Conditions)
	if err != nil {
		return nil, fmt.Errorf("invalid conditions: %w", err)
	}
	paramJSON, err := marshalParameters(req.Parameters)
	if err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	rule := &models.AutomationRule{
		Name:              req.Name,
		Description:       req.Description,
		TriggerType:       req.TriggerType,
		TriggerConditions: condJSON,
		ActionType:        req.ActionType,
		ActionParameters:  paramJSON,
		Active:            active,
		CreatedBy:         userID,
		ProjectID:         req.ProjectID,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(rule).Error; err != nil {
		return nil, err
	}
	return rule, nil
}

// UpdateRule mutates a rule owned by userID.
func (s *AutomationService) UpdateRule(ctx context.Context, userID, id uint, req *AutomationRuleUpdateRequest) (*models.AutomationRule, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	rule, err := s.findOwnedRule(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.Description != nil {
		rule.Description = *req.Description
	}
	if req.Conditions != nil {
		condJSON, err := marshalConditions(req.Conditions)
		if err != nil {
			return nil, fmt.Errorf("invalid conditions: %w", err)
		}
		rule.TriggerConditions = condJSON
	}
	if req.Parameters != nil {
		paramJSON, err := marshalParameters(req.Parameters)
		if err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
		rule.ActionParameters = paramJSON
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}
	rule.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(rule).Error; err != nil {
		return nil, err
	}
	return rule, nil
}

// ToggleRule flips a rule's active flag.
func (s *AutomationService) ToggleRule(ctx context.Context, userID, id uint) (*models.AutomationRule, error) {
	rule, err := s.findOwnedRule(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	rule.Active = !rule.Active
	rule.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(rule).Error; err != nil {
		return nil, err
	}
	return rule, nil
}

// DeleteRule removes a rule owned by userID.
func (s *AutomationService) DeleteRule(ctx context.Context, userID, id uint) error {
	rule, err := s.findOwnedRule(ctx, userID, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(rule).Error
}

// GetRule fetches a rule owned by userID.
func (s *AutomationService) GetRule(ctx context.Context, userID, id uint) (*models.AutomationRule, error) {
	return s.findOwnedRule(ctx, userID, id)
}

// ListRules returns the caller's rules, newest first.
func (s *AutomationService) ListRules(ctx context.Context, userID uint) ([]models.AutomationRule, error) {
	var rules []models.AutomationRule
	if err := s.db.WithContext(ctx).
		Where("created_by = ?", userID).
		Order("id DESC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// ListLogs pages through the execution log of a rule owned by userID,
// newest attempts first.
func (s *AutomationService) ListLogs(ctx context.Context, userID, ruleID uint, page, pageSize int) ([]models.AutomationLog, int64, error) {
	if _, err := s.findOwnedRule(ctx, userID, ruleID); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	q := s.db.WithContext(ctx).Model(&models.AutomationLog{}).Where("rule_id = ?", ruleID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var logs []models.AutomationLog
	if err := q.Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// findOwnedRule loads a rule and enforces creator-only access: a missing
// rule maps to ErrNotFound, someone else's rule to ErrPermissionDenied.
func (s *AutomationService) findOwnedRule(ctx context.Context, userID, id uint) (*models.AutomationRule, error) {
	var rule models.AutomationRule
	if err := s.db.WithContext(ctx).First(&rule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("automation rule %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	if rule.CreatedBy != userID {
		return nil, fmt.Errorf("automation rule %d: %w", id, ErrPermissionDenied)
	}
	return &rule, nil
}

func marshalConditions(conds []RuleCondition) (string, error) {
	if len(conds) == 0 {
		return "", nil
	}
	data, err := json.Marshal(conds)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func marshalParameters(params map[string]interface{}) (string, error) {
	if len(params) == 0 {
		return "", nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
