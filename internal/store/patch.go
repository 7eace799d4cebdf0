package store

import (
	"fmt"
	"strings"
)

// Patch accumulates column assignments for a partial UPDATE. Values are never
// interpolated into SQL text; Clause renders placeholders and Args supplies
// the matching values, so the resulting statement is fully parameterized.
type Patch struct {
	columns []string
	args    []any
}

// Set records an assignment for column.
func (p *Patch) Set(column string, value any) {
	p.columns = append(p.columns, column)
	p.args = append(p.args, value)
}

// Empty reports whether the patch carries no substantive assignments.
// The always-appended updated_at clause does not count.
func (p *Patch) Empty() bool {
	return len(p.columns) == 0
}

// Len returns the number of assignments.
func (p *Patch) Len() int {
	return len(p.columns)
}

// Clause renders the SET fragment "col1 = $start, col2 = $start+1, ...,
// updated_at = NOW()" with placeholders numbered from start.
func (p *Patch) Clause(start int) string {
	var b strings.Builder
	for i, column := range p.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s = $%d", column, start+i)
	}
	b.WriteString(", updated_at = NOW()")
	return b.String()
}

// Args returns the assignment values in clause order.
func (p *Patch) Args() []any {
	return p.args
}
