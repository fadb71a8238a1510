package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Adriano-Lengruber/flowtasks/internal/metrics"
	"github.com/Adriano-Lengruber/flowtasks/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AutomationPayload is the loosely-typed event payload handed to the
// engine by trigger sources. Conventional keys: "task_id", "project_id".
type AutomationPayload map[string]interface{}

// RuleStore provides rule lookup and persistence for the engine.
type RuleStore interface {
	// FindActiveRulesForTrigger returns active rules for the trigger type.
	// When projectID is set, the result is restricted to rules scoped to
	// that project plus global (unscoped) rules.
	FindActiveRulesForTrigger(ctx context.Context, triggerType string, projectID *uint) ([]models.AutomationRule, error)
	Save(ctx context.Context, rule *models.AutomationRule) error
}

// ConditionEvaluator decides whether a rule's conditions hold for a payload.
type ConditionEvaluator interface {
	Satisfied(rule *models.AutomationRule, payload AutomationPayload) bool
}

// ActionExecutor performs one side-effecting action and returns a small
// acknowledgement describing what was done.
type ActionExecutor interface {
	Execute(ctx context.Context, actionType string, params map[string]interface{}, payload AutomationPayload) (map[string]interface{}, error)
}

// ExecutionRecord captures the outcome of one rule execution attempt.
type ExecutionRecord struct {
	Rule         *models.AutomationRule
	Status       string
	Payload      AutomationPayload
	ActionResult map[string]interface{}
	ErrorMessage string
	ElapsedMs    int64
	TriggeredBy  *uint
}

// ExecutionLogger durably records one ExecutionRecord per attempt.
type ExecutionLogger interface {
	Record(ctx context.Context, rec ExecutionRecord) error
}

// AutomationEngine matches domain events against stored rules and runs
// condition check, action execution and audit logging for each match.
// Rules are processed sequentially in store order; a failure in one rule
// never affects the others, and every attempt yields exactly one log row.
type AutomationEngine struct {
	rules         RuleStore
	conditions    ConditionEvaluator
	actions       ActionExecutor
	execLog       ExecutionLogger
	logger        *logrus.Logger
	actionTimeout time.Duration
}

// EngineOption tunes an AutomationEngine.
type EngineOption func(*AutomationEngine)

// WithActionTimeout bounds each action execution. A timed-out action is
// recorded as a failed attempt like any other action error.
func WithActionTimeout(d time.Duration) EngineOption {
	return func(e *AutomationEngine) { e.actionTimeout = d }
}

// NewAutomationEngine wires the four collaborators explicitly so tests can
// substitute any of them.
func NewAutomationEngine(rules RuleStore, conditions ConditionEvaluator, actions ActionExecutor, execLog ExecutionLogger, logger *logrus.Logger, opts ...EngineOption) *AutomationEngine {
	if logger == nil {
		logger = logrus.New()
	}
	e := &AutomationEngine{
		rules:      rules,
		conditions: conditions,
		actions:    actions,
		execLog:    execLog,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecuteAutomations runs every matching active rule for the event.
// It returns once all matches have been attempted and never surfaces
// per-rule failures to the caller; outcomes live in the automation log.
func (e *AutomationEngine) ExecuteAutomations(ctx context.Context, triggerType string, payload AutomationPayload, triggeredBy *uint) {
	rules, err := e.rules.FindActiveRulesForTrigger(ctx, triggerType, payloadProjectID(payload))
	if err != nil {
		e.logger.Warnf("automation: load rules for %s failed: %v", triggerType, err)
		return
	}
	for i := range rules {
		e.attempt(ctx, &rules[i], payload, triggeredBy)
	}
}

// attempt runs one rule against one event. The deferred block writes the
// log row on every exit path, including a panicking action handler.
func (e *AutomationEngine) attempt(ctx context.Context, rule *models.AutomationRule, payload AutomationPayload, triggeredBy *uint) {
	start := time.Now()
	status := models.AutomationStatusFailed
	var (
		result map[string]interface{}
		errMsg string
	)

	defer func() {
		if r := recover(); r != nil {
			status = models.AutomationStatusFailed
			result = nil
			errMsg = fmt.Sprintf("panic: %v", r)
			e.logger.Errorf("automation: rule %d panicked: %v", rule.ID, r)
		}
		rec := ExecutionRecord{
			Rule:         rule,
			Status:       status,
			Payload:      payload,
			ActionResult: result,
			ErrorMessage: errMsg,
			ElapsedMs:    time.Since(start).Milliseconds(),
			TriggeredBy:  triggeredBy,
		}
		if err := e.execLog.Record(ctx, rec); err != nil {
			// Last line of defense: nothing else can preserve the audit
			// trail, so the failure goes to the operational log.
			e.logger.Errorf("automation: record attempt for rule %d failed: %v", rule.ID, err)
		}
		metrics.IncAutomationOutcome(status)
	}()

	if !e.conditions.Satisfied(rule, payload) {
		status = models.AutomationStatusSkipped
		return
	}

	params, err := decodeActionParams(rule.ActionParameters)
	if err != nil {
		errMsg = fmt.Sprintf("invalid action parameters: %v", err)
		return
	}

	actionCtx := ctx
	if e.actionTimeout > 0 {
		var cancel context.CancelFunc
		actionCtx, cancel = context.WithTimeout(ctx, e.actionTimeout)
		defer cancel()
	}

	result, err = e.actions.Execute(actionCtx, rule.ActionType, params, payload)
	if err != nil {
		result = nil
		errMsg = err.Error()
		return
	}

	status = models.AutomationStatusSuccess
	now := time.Now()
	rule.ExecutionCount++
	rule.LastExecutedAt = &now
	if err := e.rules.Save(ctx, rule); err != nil {
		e.logger.Warnf("automation: update counters for rule %d failed: %v", rule.ID, err)
	}
}

// decodeActionParams parses the rule's serialized parameter blob. An empty
// blob yields an empty parameter map.
func decodeActionParams(raw string) (map[string]interface{}, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]interface{}{}, nil
	}
	var params map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, err
	}
	if params == nil {
		params = map[string]interface{}{}
	}
	return params, nil
}

// payloadProjectID extracts the conventional "project_id" key, if numeric.
func payloadProjectID(payload AutomationPayload) *uint {
	return payloadUint(payload, "project_id")
}

// payloadTaskID extracts the conventional "task_id" key, if numeric.
func payloadTaskID(payload AutomationPayload) *uint {
	return payloadUint(payload, "task_id")
}

func payloadUint(payload AutomationPayload, key string) *uint {
	if payload == nil {
		return nil
	}
	if v, ok := toUint(payload[key]); ok {
		return &v
	}
	return nil
}

// toUint normalizes the numeric shapes JSON decoding and in-process
// callers produce for ids.
func toUint(v interface{}) (uint, bool) {
	switch t := v.(type) {
	case uint:
		return t, true
	case int:
		if t >= 0 {
			return uint(t), true
		}
	case int64:
		if t >= 0 {
			return uint(t), true
		}
	case float64:
		if t >= 0 {
			return uint(t), true
		}
	case json.Number:
		if n, err := t.Int64(); err == nil && n >= 0 {
			return uint(n), true
		}
	}
	return 0, false
}

// gormRuleStore is the default RuleStore backed by the application DB.
type gormRuleStore struct {
	db *gorm.DB
}

// NewGormRuleStore returns a RuleStore over the given DB handle.
func NewGormRuleStore(db *gorm.DB) RuleStore {
	return &gormRuleStore{db: db}
}

func (s *gormRuleStore) FindActiveRulesForTrigger(ctx context.Context, triggerType string, projectID *uint) ([]models.AutomationRule, error) {
	var rules []models.AutomationRule
	q := s.db.WithContext(ctx).
		Where("trigger_type = ? AND active = ?", triggerType, true)
	if projectID != nil {
		q = q.Where("project_id = ? OR project_id IS NULL", *projectID)
	}
	if err := q.Order("id ASC").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (s *gormRuleStore) Save(ctx context.Context, rule *models.AutomationRule) error {
	return s.db.WithContext(ctx).Save(rule).Error
}
