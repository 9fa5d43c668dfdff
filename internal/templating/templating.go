package templating

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/valyala/fasttemplate"
	"gopkg.in/yaml.v3"
)

const (
	startTag = "$("
	endTag   = ")"
)

// ErrMissingKey is returned when a template references a key the context
// does not define.
var ErrMissingKey = errors.New("template key has no value")

// Context is the read-only set of values a template may reference.
type Context struct {
	values map[string]string
}

// NewContext merges overlay over base. Neither input is retained.
func NewContext(base, overlay map[string]string) Context {
	values := make(map[string]string, len(base)+len(overlay))
	for k, v := range base {
		values[k] = v
	}
	for k, v := range overlay {
		values[k] = v
	}
	return Context{values: values}
}

// With returns a copy of c with overlay applied.
func (c Context) With(overlay map[string]string) Context {
	return NewContext(c.values, overlay)
}

func (c Context) Lookup(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Keys returns the defined keys in sorted order.
func (c Context) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Expand fills the $(KEY) placeholders in s. Unlike Render the result is
// plain text.
func Expand(s string, ctx Context) (string, error) {
	t, err := fasttemplate.NewTemplate(s, startTag, endTag)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}
	return t.ExecuteFuncStringWithErr(func(w io.Writer, tag string) (int, error) {
		v, ok := ctx.Lookup(tag)
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrMissingKey, tag)
		}
		return w.Write([]byte(v))
	})
}

// Render fills the $(KEY) placeholders in tmpl and returns the result
// re-encoded as YAML with a two space indent.
func Render(tmpl []byte, ctx Context) ([]byte, error) {
	filled, err := Expand(string(tmpl), ctx)
	if err != nil {
		return nil, err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(filled), &doc); err != nil {
		return nil, fmt.Errorf("rendered template is not valid YAML: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, errors.New("rendered template is empty")
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("failed to encode rendered YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode rendered YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderFile renders the template at templatePath and writes it to output.
func RenderFile(templatePath, output string, ctx Context) error {
	tmpl, err := os.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read template %s: %w", templatePath, err)
	}
	out, err := Render(tmpl, ctx)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", templatePath, err)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", output, err)
	}
	if err := os.WriteFile(output, out, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	return nil
}
