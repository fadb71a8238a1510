package services

import (
	"encoding/json"
	"strings"

	"github.com/Adriano-Lengruber/flowtasks/internal/models"

	"github.com/sirupsen/logrus"
)

// RuleCondition is one entry of a rule's serialized condition list.
type RuleCondition struct {
	Field string      `json:"field"`
	Op    string      `json:"op"`
	Value interface{} `json:"value"`
}

// JSONConditionEvaluator implements the engine's condition contract over
// the text condition column:
//   - no conditions configured: always satisfied
//   - condition blob that fails to parse: unsatisfied (the rule is
//     silently disabled for that event instead of failing the batch)
//   - condition blob that parses: satisfied
//
// Matching parsed conditions against payload fields is an extension
// point; substitute the ConditionEvaluator to plug in predicate logic.
type JSONConditionEvaluator struct {
	logger *logrus.Logger
}

// NewJSONConditionEvaluator returns the default condition evaluator.
func NewJSONConditionEvaluator(logger *logrus.Logger) *JSONConditionEvaluator {
	if logger == nil {
		logger = logrus.New()
	}
	return &JSONConditionEvaluator{logger: logger}
}

func (e *JSONConditionEvaluator) Satisfied(rule *models.AutomationRule, payload AutomationPayload) bool {
	raw := strings.TrimSpace(rule.TriggerConditions)
	if raw == "" {
		return true
	}
	var conds []RuleCondition
	if err := json.Unmarshal([]byte(raw), &conds); err != nil {
		e.logger.Warnf("automation: invalid conditions for rule %d: %v", rule.ID, err)
		return false
	}
	return true
}
