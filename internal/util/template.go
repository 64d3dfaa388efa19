package util

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

var funcs = template.FuncMap{
	"default": func(defaultVal any, val any) any {
		if val == nil || val == "" {
			return defaultVal
		}
		return val
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"title": func(s string) string {
		if len(s) == 0 {
			return s
		}
		return strings.ToUpper(string(s[0])) + strings.ToLower(s[1:])
	},
	"join": func(sep string, items []any) string {
		strItems := make([]string, len(items))
		for i, item := range items {
			strItems[i] = fmt.Sprintf("%v", item)
		}
		return strings.Join(strItems, sep)
	},
}

// RenderTemplate replaces template variables using Go's text/template package.
// Variables are addressed as {{.name}}. Missing variables are an error.
func RenderTemplate(text string, vars map[string]any) (string, error) {
	if !strings.Contains(text, "{{") { // fast path: no template markers
		return text, nil
	}

	tmpl, err := template.New("value").Funcs(funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// RenderValues renders every string value, including strings nested in
// arrays and objects. A string that is exactly one {{.name}} reference takes
// the variable's value with its original type.
func RenderValues(values map[string]any, vars map[string]any) (map[string]any, error) {
	if values == nil {
		return nil, nil
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		r, err := renderValue(v, vars)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		out[k] = r
	}
	return out, nil
}

func renderValue(v any, vars map[string]any) (any, error) {
	switch t := v.(type) {
	case string:
		if name, ok := singleReference(t); ok {
			if val, found := vars[name]; found {
				return val, nil
			}
		}
		return RenderTemplate(t, vars)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			r, err := renderValue(e, vars)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case map[string]any:
		return RenderValues(t, vars)
	default:
		return v, nil
	}
}

// singleReference matches "{{.name}}" with optional inner spaces.
func singleReference(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{{") || !strings.HasSuffix(s, "}}") {
		return "", false
	}
	inner := strings.TrimSpace(s[2 : len(s)-2])
	if !strings.HasPrefix(inner, ".") {
		return "", false
	}
	name := inner[1:]
	if name == "" || strings.ContainsAny(name, " .|()\"") {
		return "", false
	}
	return name, true
}
