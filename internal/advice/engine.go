// Package advice turns raw answers into concrete suggestions using CEL rules.
package advice

import (
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/opensource-wellbeing/pulse/internal/domain"
)

// MaxSuggestions caps the suggestions returned for one submission.
const MaxSuggestions = 5

// Engine evaluates compiled suggestion rules in declaration order.
// It is immutable after construction and safe for concurrent use.
type Engine struct {
	rules []*compiledRule
}

type compiledRule struct {
	config  domain.SuggestionRule
	when    cel.Program
	problem cel.Program
}

// NewEngine compiles rules. An empty slice loads DefaultRules.
func NewEngine(rules []domain.SuggestionRule) (*Engine, error) {
	if len(rules) == 0 {
		rules = DefaultRules()
	}

	env, err := newEnv()
	if err != nil {
		return nil, err
	}

	e := &Engine{rules: make([]*compiledRule, 0, len(rules))}
	for _, r := range rules {
		c, err := compileRule(env, r)
		if err != nil {
			return nil, err
		}
		e.rules = append(e.rules, c)
	}
	return e, nil
}

// newEnv declares every answer field as a CEL variable.
func newEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("age", cel.IntType),
		cel.Variable("studyHours", cel.IntType),
		cel.Variable("sleepHours", cel.IntType),
		cel.Variable("screenTime", cel.IntType),
		cel.Variable("outdoorActivity", cel.IntType),
		cel.Variable("gender", cel.StringType),
		cel.Variable("academicLevel", cel.StringType),
		cel.Variable("talkTo", cel.StringType),
		cel.Variable("openness", cel.StringType),
		cel.Variable("academicPressure", cel.IntType),
		cel.Variable("stressLevel", cel.IntType),
		cel.Variable("sleepIssues", cel.IntType),
		cel.Variable("hopelessness", cel.IntType),
		cel.Variable("financialComfort", cel.IntType),
		cel.Variable("institutionalSupport", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

func compileRule(env *cel.Env, r domain.SuggestionRule) (*compiledRule, error) {
	when, err := compileExpr(env, r.ID, "when", r.When, cel.BoolType)
	if err != nil {
		return nil, err
	}
	problem, err := compileExpr(env, r.ID, "problem", r.Problem, cel.StringType)
	if err != nil {
		return nil, err
	}
	return &compiledRule{config: r, when: when, problem: problem}, nil
}

func compileExpr(env *cel.Env, id, field, expr string, want *cel.Type) (cel.Program, error) {
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile %s of rule %s: %w", field, id, issues.Err())
	}
	if !ast.OutputType().IsExactType(want) {
		return nil, fmt.Errorf("rule %s: %s must return %s, got %s", id, field, want, ast.OutputType())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", id, err)
	}
	return program, nil
}

// Validate compiles a rule without loading it.
func Validate(r domain.SuggestionRule) error {
	env, err := newEnv()
	if err != nil {
		return err
	}
	_, err = compileRule(env, r)
	return err
}

// Recommend returns the suggestions whose condition holds, in rule order,
// capped at MaxSuggestions. A rule that fails to evaluate is skipped.
func (e *Engine) Recommend(a domain.Answers) []domain.Suggestion {
	activation := map[string]any{
		"age":                  int64(a.Age),
		"studyHours":           int64(a.StudyHours),
		"sleepHours":           int64(a.SleepHours),
		"screenTime":           int64(a.ScreenTime),
		"outdoorActivity":      int64(a.OutdoorActivity),
		"gender":               a.Gender,
		"academicLevel":        a.AcademicLevel,
		"talkTo":               a.TalkTo,
		"openness":             a.Openness,
		"academicPressure":     int64(a.AcademicPressure),
		"stressLevel":          int64(a.StressLevel),
		"sleepIssues":          int64(a.SleepIssues),
		"hopelessness":         int64(a.Hopelessness),
		"financialComfort":     int64(a.FinancialComfort),
		"institutionalSupport": int64(a.InstitutionalSupport),
	}

	out := make([]domain.Suggestion, 0, MaxSuggestions)
	for _, r := range e.rules {
		if len(out) == MaxSuggestions {
			break
		}

		hit, _, err := r.when.Eval(activation)
		if err != nil {
			slog.Warn("suggestion rule failed", "rule_id", r.config.ID, "error", err)
			continue
		}
		if hit != types.True {
			continue
		}

		problem, _, err := r.problem.Eval(activation)
		if err != nil {
			slog.Warn("suggestion problem failed", "rule_id", r.config.ID, "error", err)
			continue
		}
		text, ok := problem.Value().(string)
		if !ok {
			continue
		}

		out = append(out, domain.Suggestion{
			Problem: text,
			Why:     r.config.Why,
			Action:  r.config.Action,
		})
	}
	return out
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	return len(e.rules)
}

// Rules returns the loaded rule definitions in evaluation order.
func (e *Engine) Rules() []domain.SuggestionRule {
	out := make([]domain.SuggestionRule, len(e.rules))
	for i, r := range e.rules {
		out[i] = r.config
	}
	return out
}
