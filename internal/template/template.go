package template

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// ErrRender is returned when a template cannot be parsed or evaluated.
var ErrRender = errors.New("render template")

// Vars are the values a template can refer to.
type Vars struct {
	// Provider is exposed as ${provider}.
	Provider string
	// Release is exposed as ${release}.
	Release string
	// Version is exposed as ${version} when not empty.
	Version string
	// Extra adds plugin-specific variables.
	Extra map[string]string
}

// Renderer resolves placeholders in text.
type Renderer interface {
	Render(text string, vars Vars) (string, error)
}

// HCL renders templates with the HCL template language.
// Besides the variables it offers the lower, upper, replace, trimprefix,
// trimsuffix and format functions.
type HCL struct {
	functions map[string]function.Function
}

// NewHCL returns an HCL renderer.
func NewHCL() *HCL {
	return &HCL{
		functions: map[string]function.Function{
			"lower":      stdlib.LowerFunc,
			"upper":      stdlib.UpperFunc,
			"replace":    stdlib.ReplaceFunc,
			"trimprefix": stdlib.TrimPrefixFunc,
			"trimsuffix": stdlib.TrimSuffixFunc,
			"format":     stdlib.FormatFunc,
		},
	}
}

// Render evaluates text. Text without any template sequence is returned unchanged.
func (h *HCL) Render(text string, vars Vars) (string, error) {
	if !strings.Contains(text, "${") && !strings.Contains(text, "%{") {
		return text, nil
	}

	expr, diags := hclsyntax.ParseTemplate([]byte(text), "template", hcl.InitialPos)
	if diags.HasErrors() {
		return "", fmt.Errorf("%w %q: %s", ErrRender, text, diags.Error())
	}

	//nolint:exhaustruct // Parent scopes are not used.
	evalCtx := &hcl.EvalContext{
		Variables: variables(vars),
		Functions: h.functions,
	}

	value, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return "", fmt.Errorf("%w %q: %s", ErrRender, text, diags.Error())
	}

	value, err := convert.Convert(value, cty.String)
	if err != nil {
		return "", fmt.Errorf("%w %q: %w", ErrRender, text, err)
	}

	if value.IsNull() || !value.IsKnown() {
		return "", fmt.Errorf("%w %q: result is null", ErrRender, text)
	}

	return value.AsString(), nil
}

func variables(vars Vars) map[string]cty.Value {
	out := map[string]cty.Value{
		"provider": cty.StringVal(vars.Provider),
		"release":  cty.StringVal(vars.Release),
		"os":       cty.StringVal(runtime.GOOS),
		"arch":     cty.StringVal(runtime.GOARCH),
	}

	if vars.Version != "" {
		out["version"] = cty.StringVal(vars.Version)
	}

	for k, v := range vars.Extra {
		out[k] = cty.StringVal(v)
	}

	return out
}

// Passthrough is a Renderer that returns text unchanged.
type Passthrough struct{}

// Render returns text.
func (Passthrough) Render(text string, _ Vars) (string, error) {
	return text, nil
}
