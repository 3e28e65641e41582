// Package selabel models security labels as opaque byte-comparable values
// and provides access to the label attached to a filesystem entry.
package selabel

import (
	"fmt"
	"strings"
)

// Label is an opaque security label. Two labels are the same label iff
// their bytes are equal; no semantic normalization is performed.
type Label string

// Context is a label decomposed into its four named components
// (user:role:type:range). The range component is optional and may itself
// contain colons, so parsing splits on at most three separators.
type Context struct {
	user     string
	role     string
	typ      string
	rng      string
	hasRange bool
}

// Parse decomposes a label into its components. It accepts three or four
// colon-separated non-empty fields.
func Parse(lbl Label) (Context, error) {
	parts := strings.SplitN(string(lbl), ":", 4)
	if len(parts) < 3 {
		return Context{}, fmt.Errorf("malformed security label %q: want user:role:type[:range]", lbl)
	}
	for i, p := range parts[:3] {
		if p == "" {
			return Context{}, fmt.Errorf("malformed security label %q: empty component %d", lbl, i)
		}
	}

	ctx := Context{user: parts[0], role: parts[1], typ: parts[2]}
	if len(parts) == 4 {
		if parts[3] == "" {
			return Context{}, fmt.Errorf("malformed security label %q: empty range", lbl)
		}
		ctx.rng = parts[3]
		ctx.hasRange = true
	}
	return ctx, nil
}

// Valid reports whether lbl parses as a label.
func Valid(lbl Label) bool {
	_, err := Parse(lbl)
	return err == nil
}

// Label serializes the context back to its opaque form.
func (c Context) Label() Label {
	if c.hasRange {
		return Label(c.user + ":" + c.role + ":" + c.typ + ":" + c.rng)
	}
	return Label(c.user + ":" + c.role + ":" + c.typ)
}

// SetUser replaces the user component.
func (c *Context) SetUser(v string) error {
	if err := checkComponent("user", v); err != nil {
		return err
	}
	c.user = v
	return nil
}

// SetRole replaces the role component.
func (c *Context) SetRole(v string) error {
	if err := checkComponent("role", v); err != nil {
		return err
	}
	c.role = v
	return nil
}

// SetType replaces the type component.
func (c *Context) SetType(v string) error {
	if err := checkComponent("type", v); err != nil {
		return err
	}
	c.typ = v
	return nil
}

// SetRange replaces the range component. Unlike the other components a
// range may contain colons (category sets), and setting one on a
// three-field context extends it to four fields.
func (c *Context) SetRange(v string) error {
	if v == "" {
		return fmt.Errorf("invalid range component: empty value")
	}
	c.rng = v
	c.hasRange = true
	return nil
}

func checkComponent(name, v string) error {
	if v == "" {
		return fmt.Errorf("invalid %s component: empty value", name)
	}
	if strings.Contains(v, ":") {
		return fmt.Errorf("invalid %s component %q: must not contain ':'", name, v)
	}
	return nil
}
