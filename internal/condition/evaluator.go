// Package condition evaluates routing condition expressions against delivery
// targets. Conditions gate which configured integrations participate in a
// send; evaluation is fail-closed so a broken rule can never cause delivery.
package condition

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kursadbilgin/integration-hub/internal/domain"
)

// Predicate is the black-box boolean expression backend.
type Predicate interface {
	EvalBool(expr string, scope map[string]any) (bool, error)
}

// Evaluator applies routing conditions with the containment rules the
// resolution path depends on: blank conditions match, failures exclude.
type Evaluator struct {
	predicate Predicate
	logger    *zap.Logger
}

func NewEvaluator(predicate Predicate, logger *zap.Logger) (*Evaluator, error) {
	if predicate == nil {
		return nil, fmt.Errorf("predicate is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Evaluator{
		predicate: predicate,
		logger:    logger,
	}, nil
}

// Evaluate applies a condition to a delivery target. A nil or blank condition
// matches unconditionally. Malformed expressions, references to absent
// properties, and type mismatches are logged and treated as non-matches.
func (e *Evaluator) Evaluate(condition *string, target domain.DeliveryTarget) (matched bool) {
	if condition == nil {
		return true
	}
	expr := strings.TrimSpace(*condition)
	if expr == "" {
		return true
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("condition evaluation panicked",
				zap.String("condition", expr),
				zap.Any("panic", r),
			)
			matched = false
		}
	}()

	result, err := e.predicate.EvalBool(expr, target.ConditionScope())
	if err != nil {
		e.logger.Warn("condition evaluation failed",
			zap.String("condition", expr),
			zap.Error(err),
		)
		return false
	}

	return result
}
