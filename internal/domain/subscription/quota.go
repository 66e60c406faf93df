package subscription

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"facturard/internal/core/apperror"
)

// Variables available to quota expressions.
const (
	varDocumentsThisMonth = "documents_this_month"
	varPlan               = "plan"
)

// QuotaPolicy compiles and caches plan quota expressions.
type QuotaPolicy struct {
	env      *cel.Env
	programs sync.Map // expression -> cel.Program
}

// NewQuotaPolicy creates the CEL environment for quota expressions.
func NewQuotaPolicy() (*QuotaPolicy, error) {
	env, err := cel.NewEnv(
		cel.Variable(varDocumentsThisMonth, cel.IntType),
		cel.Variable(varPlan, cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("quota env: %w", err)
	}
	return &QuotaPolicy{env: env}, nil
}

// Compile checks that expr is a boolean expression over the quota variables.
func (q *QuotaPolicy) Compile(expr string) (cel.Program, error) {
	if cached, ok := q.programs.Load(expr); ok {
		return cached.(cel.Program), nil
	}

	ast, issues := q.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, apperror.NewValidation("invalid quota expression").
			WithDetail("expression", expr).
			WithCause(issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, apperror.NewValidation("quota expression must return bool").
			WithDetail("expression", expr)
	}
	prg, err := q.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("quota program: %w", err)
	}
	q.programs.Store(expr, prg)
	return prg, nil
}

// Allows evaluates expr for usage.
func (q *QuotaPolicy) Allows(expr string, usage Usage) (bool, error) {
	prg, err := q.Compile(expr)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(map[string]any{
		varDocumentsThisMonth: usage.DocumentsThisMonth,
		varPlan:               usage.Plan,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate quota %q: %w", expr, err)
	}
	allowed, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("quota %q returned %T", expr, out.Value())
	}
	return allowed, nil
}
