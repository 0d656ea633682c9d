package core

import (
	"context"
	"strings"
)

// Transactor runs fn in a single unit of work: every repository call made with the ctx handed to fn joins it.
// The unit of work is rolled back when fn returns an error, committed otherwise.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// DBOrdering sorts query results by Field. Repositories ignore the fields they don't allow.
type DBOrdering struct {
	Field     string
	Ascending bool
}

// ParseOrdering parses `field,-other` orderings, a "-" prefix sorts descending.
func ParseOrdering(raw string) []DBOrdering {
	var orderings []DBOrdering
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		ord := DBOrdering{Field: strings.TrimPrefix(field, "-"), Ascending: !strings.HasPrefix(field, "-")}
		if ord.Field != "" {
			orderings = append(orderings, ord)
		}
	}
	return orderings
}

func (ord DBOrdering) String() string {
	if ord.Ascending {
		return ord.Field + " ASC"
	}
	return ord.Field + " DESC"
}
