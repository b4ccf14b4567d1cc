package collaborators

import (
	"context"
	"log/slog"

	"github.com/phillipod/sister-sto/internal/catalogmodel"
)

// Expr is the rule DSL sum type geometry expressions are built from:
// Literal | LabelRef | GroupRef | BinOp | FirstOf | ContourRightOf |
// MinMax. Each variant implements eval against the current label set
// and the group bbox accumulated so far.
type Expr interface {
	eval(ctx *evalContext) (float64, bool)
}

// evalContext carries the label set a rule evaluates against, plus a
// reference to the "current" label for .left/.mid_y shortcuts.
type evalContext struct {
	labels  []catalogmodel.Label
	current *catalogmodel.Label
	groups  map[string]catalogmodel.Rect
}

// Literal is a constant numeric value.
type Literal struct{ Value float64 }

func (l Literal) eval(*evalContext) (float64, bool) { return l.Value, true }

// LabelRef resolves to a coordinate of the label with the given text,
// via Side ("left", "right", "mid_y").
type LabelRef struct {
	Text string
	Side string
}

func (r LabelRef) eval(ctx *evalContext) (float64, bool) {
	for _, l := range ctx.labels {
		if l.Text != r.Text {
			continue
		}
		switch r.Side {
		case "left":
			return l.Left(), true
		case "right":
			return l.Right(), true
		case "mid_y":
			return l.MidY(), true
		}
	}
	return 0, false
}

// GroupRef resolves to a coordinate of a previously located group's
// bbox, keyed by label text. Only groups earlier in the same RuleSet
// have been resolved by the time a later rule evaluates.
type GroupRef struct {
	GroupLabel string
	Side       string
}

func (r GroupRef) eval(ctx *evalContext) (float64, bool) {
	rect, ok := ctx.groups[r.GroupLabel]
	if !ok {
		return 0, false
	}
	switch r.Side {
	case "left":
		return float64(rect.X), true
	case "right":
		return float64(rect.X + rect.W), true
	case "top":
		return float64(rect.Y), true
	case "bottom":
		return float64(rect.Y + rect.H), true
	default:
		return 0, false
	}
}

// BinOp combines two sub-expressions with Op ("+", "-", "*", "/").
type BinOp struct {
	Op       string
	Lhs, Rhs Expr
}

func (b BinOp) eval(ctx *evalContext) (float64, bool) {
	lv, ok := b.Lhs.eval(ctx)
	if !ok {
		return 0, false
	}
	rv, ok := b.Rhs.eval(ctx)
	if !ok {
		return 0, false
	}
	switch b.Op {
	case "+":
		return lv + rv, true
	case "-":
		return lv - rv, true
	case "*":
		return lv * rv, true
	case "/":
		if rv == 0 {
			return 0, false
		}
		return lv / rv, true
	default:
		return 0, false
	}
}

// FirstOf evaluates each candidate in order and returns the first that
// succeeds. If every candidate fails, it warns and continues rather
// than aborting the whole group (matches the orchestrator's general
// policy of logging and continuing past a single failed group).
type FirstOf struct {
	Candidates []Expr
	GroupLabel string // for diagnostics only
}

func (f FirstOf) eval(ctx *evalContext) (float64, bool) {
	for _, c := range f.Candidates {
		if v, ok := c.eval(ctx); ok {
			return v, true
		}
	}
	slog.Warn("rule DSL first_of found no resolvable candidate", "group", f.GroupLabel)
	return 0, false
}

// ContourRightOf resolves to the x-coordinate immediately to the right
// of the named label's bounding box, the geometric anchor most rule
// sets use to place a group's left edge.
type ContourRightOf struct {
	Text string
}

func (c ContourRightOf) eval(ctx *evalContext) (float64, bool) {
	for _, l := range ctx.labels {
		if l.Text == c.Text {
			return l.Right(), true
		}
	}
	return 0, false
}

// MinMax reduces a list of sub-expressions with either "min" or "max".
type MinMax struct {
	Op    string // "min" or "max"
	Exprs []Expr
}

func (m MinMax) eval(ctx *evalContext) (float64, bool) {
	var best float64
	found := false
	for _, e := range m.Exprs {
		v, ok := e.eval(ctx)
		if !ok {
			continue
		}
		if !found {
			best, found = v, true
			continue
		}
		if m.Op == "min" && v < best {
			best = v
		}
		if m.Op == "max" && v > best {
			best = v
		}
	}
	return best, found
}

// RuleGroup names one icon group and the four edge expressions that
// define its bounding box.
type RuleGroup struct {
	Label                    string
	Left, Top, Right, Bottom Expr
}

// RuleSet is an ordered list of group rules evaluated in sequence so
// later rules may reference earlier groups' resolved rects via GroupRef.
type RuleSet struct {
	Groups []RuleGroup
}

// RuleIconGroupLocator is the minimal geometric baseline evaluator: it
// walks RuleSet.Groups in order, resolving each edge expression against
// the current label set and the groups resolved so far.
type RuleIconGroupLocator struct {
	Rules RuleSet
}

// LocateIconGroups implements IconGroupLocator by evaluating each rule
// group's four edges in turn. A group whose edges fail to resolve gets
// a zero-value bbox and is still emitted (matches FirstOf's warn-and-
// continue policy rather than aborting the whole run for one group).
func (loc *RuleIconGroupLocator) LocateIconGroups(_ context.Context, labels []catalogmodel.Label, _ catalogmodel.Classification) ([]catalogmodel.IconGroup, error) {
	resolved := make(map[string]catalogmodel.Rect, len(loc.Rules.Groups))
	ec := &evalContext{labels: labels, groups: resolved}
	out := make([]catalogmodel.IconGroup, 0, len(loc.Rules.Groups))

	for _, rule := range loc.Rules.Groups {
		left, _ := rule.Left.eval(ec)
		top, _ := rule.Top.eval(ec)
		right, _ := rule.Right.eval(ec)
		bottom, _ := rule.Bottom.eval(ec)

		rect := catalogmodel.Rect{X: int(left), Y: int(top), W: int(right - left), H: int(bottom - top)}
		resolved[rule.Label] = rect
		out = append(out, catalogmodel.IconGroup{Label: rule.Label, Bbox: rect})
	}
	return out, nil
}
