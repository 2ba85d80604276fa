package core

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/huangsam/sca/internal/contract"
	"github.com/huangsam/sca/schema"
	"github.com/pkg/errors"
)

// Operators accepted inside a q expression.
var qOperators = map[string]string{
	"=":  "=",
	"!=": "<>",
	"<":  "<",
	">":  ">",
	"<=": "<=",
	">=": ">=",
	"~":  "LIKE",
}

// qConditionRegex splits "field op value"; longer operators are listed first.
var qConditionRegex = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_.]*)\s*(!=|<=|>=|=|<|>|~)(.*)$`)

// qNode is a node of a parsed q expression.
type qNode interface {
	render(r *qRenderer) (string, error)
}

// qCondition is a single "field op value" comparison.
type qCondition struct {
	Field string
	Op    string
	Value string
}

// qGroup joins children with AND or OR.
type qGroup struct {
	Op       string
	Children []qNode
}

// qRenderer turns a parsed expression into SQL bound to one field table.
type qRenderer struct {
	dialect contract.Dialect
	table   *FieldTable
	args    []any
}

func (c qCondition) render(r *qRenderer) (string, error) {
	f, ok := r.table.Lookup(c.Field)
	if !ok {
		return "", errors.Wrapf(schema.ErrUnknownField, "q references %q", c.Field)
	}
	col := r.dialect.Column(f.Table, f.Column)
	if c.Op == "~" {
		r.args = append(r.args, contract.LikePattern(c.Value))
		return r.dialect.Contains(col), nil
	}
	if f.Numeric {
		n, err := strconv.ParseInt(strings.TrimSpace(c.Value), 10, 64)
		if err != nil {
			return "", errors.Wrapf(schema.ErrInvalidQuery, "%s expects an integer, got %q", c.Field, c.Value)
		}
		r.args = append(r.args, n)
	} else {
		r.args = append(r.args, c.Value)
	}
	return col + " " + qOperators[c.Op] + " ?", nil
}

func (g qGroup) render(r *qRenderer) (string, error) {
	parts := make([]string, 0, len(g.Children))
	for _, child := range g.Children {
		sql, err := child.render(r)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, " "+g.Op+" ") + ")", nil
}

// qParser is a recursive-descent parser over the q grammar:
//
//	or   := and (',' and)*
//	and  := term (';' term)*
//	term := '(' or ')' | field op value
type qParser struct {
	src string
	pos int
}

// parseQ parses a q expression. An empty expression yields a nil node.
func parseQ(q string) (qNode, error) {
	if strings.TrimSpace(q) == "" {
		return nil, nil
	}
	p := &qParser{src: q}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, errors.Wrapf(schema.ErrInvalidQuery, "unexpected %q at position %d", p.src[p.pos:], p.pos)
	}
	return node, nil
}

func (p *qParser) parseOr() (qNode, error) {
	return p.parseList(',', "OR", p.parseAnd)
}

func (p *qParser) parseAnd() (qNode, error) {
	return p.parseList(';', "AND", p.parseTerm)
}

func (p *qParser) parseList(sep byte, op string, next func() (qNode, error)) (qNode, error) {
	first, err := next()
	if err != nil {
		return nil, err
	}
	group := qGroup{Op: op, Children: []qNode{first}}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != sep {
			break
		}
		p.pos++
		child, err := next()
		if err != nil {
			return nil, err
		}
		group.Children = append(group.Children, child)
	}
	if len(group.Children) == 1 {
		return first, nil
	}
	return group, nil
}

func (p *qParser) parseTerm() (qNode, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, errors.Wrap(schema.ErrInvalidQuery, "unexpected end of query")
	}
	if p.src[p.pos] == '(' {
		p.pos++
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != ')' {
			return nil, errors.Wrap(schema.ErrInvalidQuery, "missing closing parenthesis")
		}
		p.pos++
		return node, nil
	}

	end := p.pos
	for end < len(p.src) && !strings.ContainsRune(";,()", rune(p.src[end])) {
		end++
	}
	raw := p.src[p.pos:end]
	m := qConditionRegex.FindStringSubmatch(raw)
	if m == nil {
		return nil, errors.Wrapf(schema.ErrInvalidQuery, "invalid condition %q", raw)
	}
	p.pos = end
	return qCondition{Field: m[1], Op: m[2], Value: m[3]}, nil
}

func (p *qParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

// collectFields returns every field name referenced by a parsed expression.
func collectFields(node qNode) []string {
	switch n := node.(type) {
	case qCondition:
		return []string{n.Field}
	case qGroup:
		var out []string
		for _, c := range n.Children {
			out = append(out, collectFields(c)...)
		}
		return out
	default:
		return nil
	}
}
