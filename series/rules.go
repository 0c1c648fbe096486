package series

import (
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// RuleSet holds compiled data-quality expressions evaluated against every
// point at load time. Expressions see the variables value (float64), date
// (time.Time), series and region (string) and must yield a boolean.
type RuleSet struct {
	programs []*vm.Program
	sources  []string
}

func ruleEnv(value float64, date time.Time, seriesID, region string) map[string]interface{} {
	return map[string]interface{}{
		"value":  value,
		"date":   date,
		"series": seriesID,
		"region": region,
	}
}

// CompileRules compiles the given rule expressions. An empty input yields a
// rule set that accepts every point.
func CompileRules(rules []string) (*RuleSet, error) {
	set := &RuleSet{}
	for _, rule := range rules {
		if rule == "" {
			return nil, fmt.Errorf("quality rule must not be empty")
		}
		program, err := expr.Compile(rule,
			expr.Env(ruleEnv(0, time.Time{}, "", "")),
			expr.AsBool(),
		)
		if err != nil {
			return nil, fmt.Errorf("compile quality rule %q: %w", rule, err)
		}
		set.programs = append(set.programs, program)
		set.sources = append(set.sources, rule)
	}
	return set, nil
}

// Len reports the number of compiled rules.
func (r *RuleSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.programs)
}

// Check evaluates every rule against the point and fails on the first
// violation or evaluation error.
func (r *RuleSet) Check(p Point) error {
	if r == nil {
		return nil
	}
	env := ruleEnv(p.Value.InexactFloat64(), p.Date, p.SeriesID, p.Region)
	for idx, program := range r.programs {
		out, err := expr.Run(program, env)
		if err != nil {
			return fmt.Errorf("evaluate quality rule %q: %w", r.sources[idx], err)
		}
		ok, isBool := out.(bool)
		if !isBool {
			return fmt.Errorf("quality rule %q returned %T, expected bool", r.sources[idx], out)
		}
		if !ok {
			return fmt.Errorf("quality rule %q rejected point %s=%s at %s", r.sources[idx], p.SeriesID, p.Value, p.Date.Format("2006-01-02"))
		}
	}
	return nil
}
