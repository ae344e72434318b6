// Package parser converts text conditions such as
//
//	spellCpm(48066) < 18 && numTargets() >= 3
//
// into condition trees. Tokenizing and precedence are handled by the expr
// language parser; this package maps its syntax tree onto the closed set
// of condition nodes and rejects anything outside it.
package parser

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr/ast"
	exprparser "github.com/expr-lang/expr/parser"

	"github.com/nathoo/aplcore/engine/rules"
	"github.com/nathoo/aplcore/types"
)

// SyntaxError reports a condition that could not be parsed or that uses
// a construct with no condition equivalent.
type SyntaxError struct {
	Input string
	Msg   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("condition %q: %s", e.Input, e.Msg)
}

// Resolver maps a spell name to its ID.
type Resolver func(name string) (types.SpellID, error)

// spellFuncs take exactly one spell argument.
var spellFuncs = map[string]types.MetricKind{
	"spellCpm":         types.MetricSpellCpm,
	"spellIsReady":     types.MetricSpellIsReady,
	"spellTimeToReady": types.MetricSpellTimeToReady,
	"dotRemaining":     types.MetricDotRemaining,
	"shieldsActive":    types.MetricShieldsActive,
}

// stateFuncs take no arguments and may be written with or without ().
var stateFuncs = map[string]types.MetricKind{
	"currentTime":   types.MetricCurrentTime,
	"remainingTime": types.MetricRemainingTime,
	"numTargets":    types.MetricNumTargets,
	"manaPercent":   types.MetricManaPercent,
}

var compareOps = map[string]types.CompareOp{
	"<": types.OpLt, "<=": types.OpLe, ">": types.OpGt, ">=": types.OpGe, "==": types.OpEq, "!=": types.OpNe,
}

var mathOps = map[string]types.MathOp{
	"+": types.OpAdd, "-": types.OpSub, "*": types.OpMul, "/": types.OpDiv,
}

// Parse parses a text condition. resolve may be nil, in which case spells
// must be referenced by numeric ID.
func Parse(input string, resolve Resolver) (*types.Condition, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &SyntaxError{Input: input, Msg: "empty condition"}
	}
	tree, err := exprparser.Parse(input)
	if err != nil {
		return nil, &SyntaxError{Input: input, Msg: err.Error()}
	}
	c := &converter{input: input, resolve: resolve}
	cond, err := c.convert(tree.Node)
	if err != nil {
		return nil, err
	}
	return &cond, nil
}

type converter struct {
	input   string
	resolve Resolver
}

func (c *converter) errorf(format string, args ...any) error {
	return &SyntaxError{Input: c.input, Msg: fmt.Sprintf(format, args...)}
}

func (c *converter) convert(n ast.Node) (types.Condition, error) {
	switch n := n.(type) {
	case *ast.IntegerNode:
		return constant(rules.Number(float64(n.Value))), nil
	case *ast.FloatNode:
		return constant(rules.Number(n.Value)), nil
	case *ast.BoolNode:
		return constant(rules.Bool(n.Value)), nil
	case *ast.StringNode:
		v, err := rules.ParseConst(n.Value)
		if err != nil {
			return types.Condition{}, c.errorf("%v", err)
		}
		return constant(v), nil

	case *ast.IdentifierNode:
		if m, ok := stateFuncs[n.Value]; ok {
			return types.Condition{Type: types.CondMetric, Metric: m}, nil
		}
		return types.Condition{}, c.errorf("unknown identifier %q", n.Value)

	case *ast.UnaryNode:
		return c.unary(n)
	case *ast.BinaryNode:
		return c.binary(n)
	case *ast.CallNode:
		return c.call(n)

	case *ast.BuiltinNode:
		if n.Name == "duration" && len(n.Arguments) == 1 {
			if s, ok := n.Arguments[0].(*ast.StringNode); ok {
				v, err := rules.ParseConst(s.Value)
				if err != nil || v.Kind != types.KindDuration {
					return types.Condition{}, c.errorf("bad duration %q", s.Value)
				}
				return constant(v), nil
			}
		}
		return types.Condition{}, c.errorf("unsupported function %s", n.Name)

	default:
		return types.Condition{}, c.errorf("unsupported expression %T", n)
	}
}

func (c *converter) unary(n *ast.UnaryNode) (types.Condition, error) {
	inner, err := c.convert(n.Node)
	if err != nil {
		return types.Condition{}, err
	}
	switch n.Operator {
	case "!", "not":
		return types.Condition{Type: types.CondNot, Children: []types.Condition{inner}}, nil
	case "+":
		return inner, nil
	case "-":
		if inner.Type != types.CondConst {
			return types.Condition{}, c.errorf("negation only applies to constants")
		}
		switch inner.Value.Kind {
		case types.KindNumber:
			inner.Value.Num = -inner.Value.Num
		case types.KindDuration:
			inner.Value.Dur = -inner.Value.Dur
		default:
			return types.Condition{}, c.errorf("cannot negate a boolean")
		}
		return inner, nil
	default:
		return types.Condition{}, c.errorf("unsupported operator %q", n.Operator)
	}
}

func (c *converter) binary(n *ast.BinaryNode) (types.Condition, error) {
	lhs, err := c.convert(n.Left)
	if err != nil {
		return types.Condition{}, err
	}
	rhs, err := c.convert(n.Right)
	if err != nil {
		return types.Condition{}, err
	}

	switch n.Operator {
	case "&&", "and":
		return junction(types.CondAnd, lhs, rhs), nil
	case "||", "or":
		return junction(types.CondOr, lhs, rhs), nil
	}
	if op, ok := compareOps[n.Operator]; ok {
		return types.Condition{Type: types.CondCmp, Cmp: op, LHS: &lhs, RHS: &rhs}, nil
	}
	if op, ok := mathOps[n.Operator]; ok {
		return types.Condition{Type: types.CondMath, Math: op, LHS: &lhs, RHS: &rhs}, nil
	}
	return types.Condition{}, c.errorf("unsupported operator %q", n.Operator)
}

// junction flattens chains like a && b && c into one node.
func junction(typ types.ConditionType, lhs, rhs types.Condition) types.Condition {
	var children []types.Condition
	for _, side := range []types.Condition{lhs, rhs} {
		if side.Type == typ {
			children = append(children, side.Children...)
		} else {
			children = append(children, side)
		}
	}
	return types.Condition{Type: typ, Children: children}
}

func (c *converter) call(n *ast.CallNode) (types.Condition, error) {
	ident, ok := n.Callee.(*ast.IdentifierNode)
	if !ok {
		return types.Condition{}, c.errorf("unsupported call")
	}
	name := ident.Value

	if m, ok := stateFuncs[name]; ok {
		if len(n.Arguments) != 0 {
			return types.Condition{}, c.errorf("%s takes no arguments", name)
		}
		return types.Condition{Type: types.CondMetric, Metric: m}, nil
	}
	m, ok := spellFuncs[name]
	if !ok {
		return types.Condition{}, c.errorf("unknown function %s", name)
	}
	if len(n.Arguments) != 1 {
		return types.Condition{}, c.errorf("%s takes one spell argument", name)
	}
	id, err := c.spell(n.Arguments[0])
	if err != nil {
		return types.Condition{}, err
	}
	return types.Condition{Type: types.CondMetric, Metric: m, SpellID: id}, nil
}

func (c *converter) spell(n ast.Node) (types.SpellID, error) {
	var ref string
	switch n := n.(type) {
	case *ast.IntegerNode:
		return types.SpellID(n.Value), nil
	case *ast.StringNode:
		ref = n.Value
	case *ast.IdentifierNode:
		ref = n.Value
	default:
		return 0, c.errorf("spell argument must be an id or a name")
	}
	if c.resolve == nil {
		return 0, c.errorf("spell %q must be given by id", ref)
	}
	id, err := c.resolve(ref)
	if err != nil {
		return 0, fmt.Errorf("condition %q: %w", c.input, err)
	}
	return id, nil
}

func constant(v types.Value) types.Condition {
	return types.Condition{Type: types.CondConst, Value: v}
}
