package classifier

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/liamcoop/iris/internal/logger"
)

// CEL variable names bound to a Measurement
const (
	VarSepalLength = "sepal_length"
	VarSepalWidth  = "sepal_width"
	VarPetalLength = "petal_length"
	VarPetalWidth  = "petal_width"
)

// costLimit bounds a single branch evaluation
const costLimit = 10000

// Rule is one decision branch expressed as a CEL boolean expression
type Rule struct {
	Branch     string `json:"branch"`
	Expression string `json:"expression"`
}

// Evaluation records the outcome of one rule during Explain
type Evaluation struct {
	Branch     string `json:"branch"`
	Expression string `json:"expression"`
	Matched    bool   `json:"matched"`
	Error      string `json:"error,omitempty"`
}

// DecisionRules returns the decision tree as ordered rules.
// The first rule that evaluates to true decides the result.
func DecisionRules() []Rule {
	pl, pw := VarPetalLength, VarPetalWidth
	sl, sw := VarSepalLength, VarSepalWidth

	versicolorBand := fmt.Sprintf("%s < %s && %s < %s",
		pl, double(VersicolorMaxPetalLength), pw, double(VersicolorMaxPetalWidth))

	return []Rule{
		{
			Branch: BranchSetosa,
			Expression: fmt.Sprintf("%s < %s && %s < %s",
				pl, double(SetosaMaxPetalLength), pw, double(SetosaMaxPetalWidth)),
		},
		{
			Branch: BranchVersicolorCompact,
			Expression: fmt.Sprintf("%s && %s < %s && %s > %s",
				versicolorBand, sl, double(CompactMaxSepalLength), sw, double(CompactMinSepalWidth)),
		},
		{Branch: BranchVersicolor, Expression: versicolorBand},
		{Branch: BranchVirginica, Expression: "true"},
	}
}

// double renders v as a CEL double literal
func double(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

type compiledRule struct {
	Rule
	prog cel.Program
}

// RuleEngine evaluates the decision tree from compiled CEL programs.
// Programs are compiled once in NewRuleEngine and are read-only afterwards,
// so a RuleEngine is safe for concurrent use.
type RuleEngine struct {
	env   *cel.Env
	rules []compiledRule
}

// NewRuleEngine creates the CEL environment and compiles every decision rule
func NewRuleEngine() (*RuleEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable(VarSepalLength, cel.DoubleType),
		cel.Variable(VarSepalWidth, cel.DoubleType),
		cel.Variable(VarPetalLength, cel.DoubleType),
		cel.Variable(VarPetalWidth, cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	en := &RuleEngine{env: env}
	for _, r := range DecisionRules() {
		if err := en.compile(r); err != nil {
			return nil, fmt.Errorf("failed to compile rule %s: %w", r.Branch, err)
		}
	}

	return en, nil
}

func (en *RuleEngine) compile(r Rule) error {
	if _, ok := ResultFor(r.Branch); !ok {
		return fmt.Errorf("unknown branch %q", r.Branch)
	}

	ast, issues := en.env.Compile(r.Expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("compile error: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return fmt.Errorf("expression %q must be boolean, got %s", r.Expression, ast.OutputType())
	}

	prog, err := en.env.Program(ast, cel.CostLimit(costLimit))
	if err != nil {
		return fmt.Errorf("program creation error: %w", err)
	}

	en.rules = append(en.rules, compiledRule{Rule: r, prog: prog})
	return nil
}

// Rules returns the compiled rules in evaluation order
func (en *RuleEngine) Rules() []Rule {
	out := make([]Rule, 0, len(en.rules))
	for _, r := range en.rules {
		out = append(out, r.Rule)
	}
	return out
}

// Classify implements Classifier
func (en *RuleEngine) Classify(m Measurement) Result {
	res, _ := en.Explain(m)
	return res
}

// Explain classifies m and returns every rule evaluated up to and including
// the first match. If a rule fails to evaluate, the result comes from
// Classify so the engine stays total.
func (en *RuleEngine) Explain(m Measurement) (Result, []Evaluation) {
	vars := map[string]any{
		VarSepalLength: m.SepalLength,
		VarSepalWidth:  m.SepalWidth,
		VarPetalLength: m.PetalLength,
		VarPetalWidth:  m.PetalWidth,
	}

	trace := make([]Evaluation, 0, len(en.rules))
	for _, r := range en.rules {
		ev := Evaluation{Branch: r.Branch, Expression: r.Expression}

		out, _, err := r.prog.Eval(vars)
		if err != nil {
			ev.Error = err.Error()
			trace = append(trace, ev)
			logger.Error("rule evaluation failed, using native classifier",
				"branch", r.Branch, "error", err)
			return Classify(m), trace
		}

		if matched, ok := out.Value().(bool); ok {
			ev.Matched = matched
		}
		trace = append(trace, ev)

		if ev.Matched {
			res, _ := ResultFor(r.Branch)
			return res, trace
		}
	}

	// unreachable while the last rule is "true"
	return Classify(m), trace
}
