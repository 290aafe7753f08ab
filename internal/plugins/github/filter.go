package github

import (
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"
)

var errFilterNotBoolean = errors.New("asset filter must evaluate to a boolean")

// filter is a compiled CEL expression over the "asset" variable.
type filter struct {
	source  string
	program cel.Program
}

// newFilter compiles expr. An empty expression yields a nil filter that accepts everything.
func newFilter(expr string) (*filter, error) {
	if expr == "" {
		return nil, nil //nolint:nilnil // Nil filter means no filtering.
	}

	env, err := cel.NewEnv(
		cel.Variable("asset", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile asset filter %q: %w", expr, issues.Err())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build asset filter %q: %w", expr, err)
	}

	return &filter{source: expr, program: program}, nil
}

// match evaluates the filter for asset.
func (f *filter) match(asset Asset) (bool, error) {
	if f == nil {
		return true, nil
	}

	out, _, err := f.program.Eval(map[string]any{"asset": asset.celValue()})
	if err != nil {
		return false, fmt.Errorf("evaluate asset filter %q on %s: %w", f.source, asset.Name, err)
	}

	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q", errFilterNotBoolean, f.source)
	}

	return matched, nil
}
