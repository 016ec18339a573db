package database

import (
	"fmt"
	"sort"
	"strings"
)

// attrPath turns "address.country" into the array form AQL accepts for a
// nested attribute bind parameter.
func attrPath(field string) []string {
	return strings.Split(field, ".")
}

// likePattern escapes AQL LIKE wildcards in term and wraps it for a
// substring match.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// buildFilter renders the FILTER clauses for opts and adds their bind
// variables to bindVars.
func buildFilter(opts ListOptions, bindVars map[string]any) string {
	var b strings.Builder
	for i, field := range sortedKeys(opts.Filters) {
		fmt.Fprintf(&b, "\n  FILTER d.@f%d == @v%d", i, i)
		bindVars[fmt.Sprintf("f%d", i)] = attrPath(field)
		bindVars[fmt.Sprintf("v%d", i)] = opts.Filters[field]
	}
	for i, field := range sortedKeys(opts.Contains) {
		fmt.Fprintf(&b, "\n  FILTER @cv%d IN d.@cf%d", i, i)
		bindVars[fmt.Sprintf("cf%d", i)] = attrPath(field)
		bindVars[fmt.Sprintf("cv%d", i)] = opts.Contains[field]
	}
	if term := strings.TrimSpace(opts.Search); term != "" && len(opts.SearchFields) > 0 {
		clauses := make([]string, 0, len(opts.SearchFields))
		for i, field := range opts.SearchFields {
			clauses = append(clauses, fmt.Sprintf("LIKE(d.@sf%d, @search, true)", i))
			bindVars[fmt.Sprintf("sf%d", i)] = attrPath(field)
		}
		bindVars["search"] = likePattern(term)
		fmt.Fprintf(&b, "\n  FILTER %s", strings.Join(clauses, " OR "))
	}
	return b.String()
}

// listQuery holds the page and count queries for a list. ArangoDB rejects
// unused bind parameters, so each query carries its own set.
type listQuery struct {
	Query      string
	BindVars   map[string]any
	CountQuery string
	CountVars  map[string]any
}

// buildListQuery renders the AQL for a list over collection.
func buildListQuery(collection string, opts ListOptions) listQuery {
	opts = opts.Normalized()
	countVars := map[string]any{"@col": collection}
	filter := buildFilter(opts, countVars)

	bindVars := make(map[string]any, len(countVars)+3)
	for k, v := range countVars {
		bindVars[k] = v
	}

	var q strings.Builder
	q.WriteString("FOR d IN @@col")
	q.WriteString(filter)
	if opts.Sort != "" {
		dir := "ASC"
		if opts.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&q, "\n  SORT d.@sort %s", dir)
		bindVars["sort"] = attrPath(opts.Sort)
	}
	q.WriteString("\n  LIMIT @offset, @limit\n  RETURN d")
	bindVars["offset"] = opts.Offset()
	bindVars["limit"] = opts.Limit

	return listQuery{
		Query:      q.String(),
		BindVars:   bindVars,
		CountQuery: "RETURN LENGTH(\n  FOR d IN @@col" + filter + "\n  RETURN 1\n)",
		CountVars:  countVars,
	}
}
