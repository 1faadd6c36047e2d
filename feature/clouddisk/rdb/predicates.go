package rdb

import (
	"regexp"
	"strings"

	"gorm.io/gorm"
)

type condition struct {
	or    bool
	expr  string
	args  []any
	group *Predicates
	// glob holds a GLOB pattern for expr, rendered per dialect
	glob *string
}

type ordering struct {
	column string
	desc   bool
}

// Predicates describes a filtered, ordered and limited selection of rows.
// Conditions are joined with AND unless preceded by Or().
type Predicates struct {
	conds  []condition
	orders []ordering
	limit  int
	nextOr bool
}

// NewPredicates returns an empty selection (all rows).
func NewPredicates() *Predicates {
	return &Predicates{}
}

func (p *Predicates) add(expr string, args ...any) *Predicates {
	p.conds = append(p.conds, condition{or: p.nextOr, expr: expr, args: args})
	p.nextOr = false
	return p
}

func (p *Predicates) EqualTo(column string, value any) *Predicates {
	return p.add(column+" = ?", value)
}

func (p *Predicates) NotEqualTo(column string, value any) *Predicates {
	return p.add(column+" <> ?", value)
}

func (p *Predicates) GreaterThan(column string, value any) *Predicates {
	return p.add(column+" > ?", value)
}

// In matches column against values. An empty list matches nothing.
func (p *Predicates) In(column string, values []string) *Predicates {
	if len(values) == 0 {
		return p.add("1 = 0")
	}
	return p.add(column+" IN ?", values)
}

// InInts is In for integer columns.
func (p *Predicates) InInts(column string, values []int) *Predicates {
	if len(values) == 0 {
		return p.add("1 = 0")
	}
	return p.add(column+" IN ?", values)
}

// NotIn excludes values. An empty list excludes nothing.
func (p *Predicates) NotIn(column string, values []string) *Predicates {
	if len(values) == 0 {
		return p
	}
	return p.add(column+" NOT IN ?", values)
}

// Glob matches column against a sqlite GLOB pattern. On mysql the pattern
// is rewritten into a case-sensitive anchored regular expression.
func (p *Predicates) Glob(column, pattern string) *Predicates {
	p.conds = append(p.conds, condition{or: p.nextOr, expr: column, glob: &pattern})
	p.nextOr = false
	return p
}

// Or joins the next condition with OR instead of AND.
func (p *Predicates) Or() *Predicates {
	p.nextOr = true
	return p
}

// Group adds a parenthesized sub-selection built by fn.
func (p *Predicates) Group(fn func(g *Predicates)) *Predicates {
	g := NewPredicates()
	fn(g)
	p.conds = append(p.conds, condition{or: p.nextOr, group: g})
	p.nextOr = false
	return p
}

func (p *Predicates) OrderByAsc(column string) *Predicates {
	p.orders = append(p.orders, ordering{column: column})
	return p
}

func (p *Predicates) OrderByDesc(column string) *Predicates {
	p.orders = append(p.orders, ordering{column: column, desc: true})
	return p
}

// Limit caps the number of rows. Zero means unlimited.
func (p *Predicates) Limit(n int) *Predicates {
	p.limit = n
	return p
}

// where applies the conditions to q. fresh must be a statement-free session
// used to build nested groups.
func (p *Predicates) where(q, fresh *gorm.DB) *gorm.DB {
	for i, c := range p.conds {
		var arg any
		var args []any
		switch {
		case c.group != nil:
			arg = c.group.where(fresh, fresh)
		case c.glob != nil:
			arg, args = globExpr(q.Dialector.Name(), c.expr, *c.glob)
		default:
			arg = c.expr
			args = c.args
		}
		if c.or && i > 0 {
			q = q.Or(arg, args...)
		} else {
			q = q.Where(arg, args...)
		}
	}
	return q
}

func (p *Predicates) apply(q, fresh *gorm.DB) *gorm.DB {
	if p == nil {
		return q
	}
	q = p.where(q, fresh)
	for _, o := range p.orders {
		if o.desc {
			q = q.Order(o.column + " DESC")
		} else {
			q = q.Order(o.column + " ASC")
		}
	}
	if p.limit > 0 {
		q = q.Limit(p.limit)
	}
	return q
}

// hasConditions reports whether p restricts rows at all.
func (p *Predicates) hasConditions() bool {
	return p != nil && len(p.conds) > 0
}

func globExpr(dialect, column, pattern string) (string, []any) {
	if dialect == "mysql" {
		return "REGEXP_LIKE(" + column + ", ?, 'c')", []any{GlobToRegexp(pattern)}
	}
	return column + " GLOB ?", []any{pattern}
}

// GlobToRegexp translates a GLOB pattern into an anchored regular
// expression that matches the same names. An unterminated class matches a
// literal '['.
func GlobToRegexp(pattern string) string {
	rs := []rune(pattern)
	var b strings.Builder
	b.WriteByte('^')
	for i := 0; i < len(rs); i++ {
		switch r := rs[i]; r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		case '[':
			end := classEnd(rs, i)
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			b.WriteByte('[')
			body := rs[i+1 : end]
			if len(body) > 0 && body[0] == '^' {
				b.WriteByte('^')
				body = body[1:]
			}
			for _, c := range body {
				switch c {
				case '\\', '[', ']', '^':
					b.WriteByte('\\')
				}
				b.WriteRune(c)
			}
			b.WriteByte(']')
			i = end
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	return b.String()
}

// classEnd returns the index of the ']' closing the class opened at
// rs[open], or -1. A ']' right after the opening (or after '^') is literal.
func classEnd(rs []rune, open int) int {
	i := open + 1
	if i < len(rs) && rs[i] == '^' {
		i++
	}
	if i < len(rs) && rs[i] == ']' {
		i++
	}
	for ; i < len(rs); i++ {
		if rs[i] == ']' {
			return i
		}
	}
	return -1
}

// EscapeGlob quotes the GLOB metacharacters in s so it matches literally.
func EscapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[':
			b.WriteByte('[')
			b.WriteRune(r)
			b.WriteByte(']')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
