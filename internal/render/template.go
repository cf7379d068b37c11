// Package render renders step content (subjects and bodies) with the Liquid
// template language.
package render

import (
	"fmt"
	"html"
	"log"
	"regexp"
	"strings"
	"sync"

	"github.com/osteele/liquid"
)

// TemplateService handles Liquid template rendering with caching.
type TemplateService struct {
	engine *liquid.Engine
	cache  sync.Map // map[string]*liquid.Template
}

// VariableWarning flags a template variable the context does not define.
type VariableWarning struct {
	Variable string `json:"variable"`
	Message  string `json:"message"`
}

// NewTemplateService creates a template service with the custom filters
// registered.
func NewTemplateService() *TemplateService {
	ts := &TemplateService{engine: liquid.NewEngine()}
	ts.registerCustomFilters()
	return ts
}

func (ts *TemplateService) registerCustomFilters() {
	// {{ firstName | default: "there" }}
	ts.engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		s := fmt.Sprintf("%v", value)
		if s == "" || s == "<nil>" {
			return defaultVal
		}
		return value
	})

	// {{ company | capitalize }}
	ts.engine.RegisterFilter("capitalize", func(s string) string {
		if s == "" {
			return s
		}
		r := []rune(s)
		return strings.ToUpper(string(r[0])) + strings.ToLower(string(r[1:]))
	})

	// {{ jobTitle | truncate: 30 }}
	ts.engine.RegisterFilter("truncate", func(s string, length int) string {
		return Truncate(s, length)
	})

	ts.engine.RegisterFilter("escape", func(s string) string {
		return html.EscapeString(s)
	})
}

// Parse compiles a template string and returns any syntax errors.
func (ts *TemplateService) Parse(templateStr string) error {
	if _, err := ts.engine.ParseString(templateStr); err != nil {
		return err
	}
	return nil
}

// Render processes a template with the given variables. Templates are cached
// under cacheKey when it is not empty. On failure the original template
// string is returned along with the error.
func (ts *TemplateService) Render(cacheKey, templateStr string, vars map[string]interface{}) (string, error) {
	if cacheKey != "" {
		if cached, ok := ts.cache.Load(cacheKey); ok {
			out, err := cached.(*liquid.Template).RenderString(vars)
			if err != nil {
				return templateStr, err
			}
			return out, nil
		}
	}

	tpl, err := ts.engine.ParseString(templateStr)
	if err != nil {
		log.Printf("[render] parse error: %v", err)
		return templateStr, err
	}
	if cacheKey != "" {
		ts.cache.Store(cacheKey, tpl)
	}

	out, err := tpl.RenderString(vars)
	if err != nil {
		log.Printf("[render] render error: %v", err)
		return templateStr, err
	}
	return out, nil
}

// RenderLax renders and falls back to the raw template on any error. Used
// for previews, where a broken template must not hide the action.
func (ts *TemplateService) RenderLax(cacheKey, templateStr string, vars map[string]interface{}) string {
	out, _ := ts.Render(cacheKey, templateStr, vars)
	return out
}

// Forget drops a cached template, e.g. after the template was edited.
func (ts *TemplateService) Forget(cacheKey string) {
	ts.cache.Delete(cacheKey)
}

var varPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_.]*?)(?:\s*\||\s*\}\})`)

// ValidateVariables reports variables referenced by the template that vars
// does not define.
func (ts *TemplateService) ValidateVariables(templateStr string, vars map[string]interface{}) []VariableWarning {
	var warnings []VariableWarning
	seen := make(map[string]bool)
	for _, m := range varPattern.FindAllStringSubmatch(templateStr, -1) {
		name := strings.TrimSpace(m[1])
		root := strings.SplitN(name, ".", 2)[0]
		if seen[name] {
			continue
		}
		seen[name] = true
		if _, ok := vars[root]; ok {
			continue
		}
		warnings = append(warnings, VariableWarning{
			Variable: name,
			Message:  fmt.Sprintf("variable '%s' is not defined for contacts", name),
		})
	}
	return warnings
}

// Truncate cuts s to at most n runes, ending with "..." when it had to cut
// and there is room for it.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
