package deta

// Condition is a single field constraint in a fetch query.
// Build conditions with the constructor functions (Equal, LessThan, ...).
type Condition struct {
	// suffix is the Base query operator appended to the field name as
	// "field?op". Empty for plain equality.
	suffix string
	value  any
}

// Equal matches items whose field equals value. Value may be any
// JSON-serializable type, including nested objects.
func Equal(value any) Condition {
	return Condition{value: value}
}

// NotEqual matches items whose field differs from value.
func NotEqual(value any) Condition {
	return Condition{suffix: "ne", value: value}
}

// LessThan matches items whose numeric field is less than value.
func LessThan(value float64) Condition {
	return Condition{suffix: "lt", value: value}
}

// GreaterThan matches items whose numeric field is greater than value.
func GreaterThan(value float64) Condition {
	return Condition{suffix: "gt", value: value}
}

// LessThanOrEqual matches items whose numeric field is at most value.
func LessThanOrEqual(value float64) Condition {
	return Condition{suffix: "lte", value: value}
}

// GreaterThanOrEqual matches items whose numeric field is at least value.
func GreaterThanOrEqual(value float64) Condition {
	return Condition{suffix: "gte", value: value}
}

// Prefix matches items whose string field starts with value.
func Prefix(value string) Condition {
	return Condition{suffix: "pfx", value: value}
}

// Range matches items whose numeric field lies in [start, end].
func Range(start, end float64) Condition {
	return Condition{suffix: "r", value: []float64{start, end}}
}

// Contains matches items whose string or list field contains value.
func Contains(value string) Condition {
	return Condition{suffix: "contains", value: value}
}

// NotContains matches items whose string or list field does not contain value.
func NotContains(value string) Condition {
	return Condition{suffix: "not_contains", value: value}
}

// fieldKey renders the wire key for a condition on the given field:
// the plain field name for equality, "field?op" otherwise.
func (c Condition) fieldKey(field string) string {
	if c.suffix == "" {
		return field
	}

	return field + "?" + c.suffix
}

// Query builds the filter for a fetch. Conditions added with Where are
// ANDed within a group; Or starts a new group, and groups are ORed.
// Nested fields are addressed with dotted paths ("profile.age").
//
//	q := deta.NewQuery().
//		Where("age", deta.GreaterThan(50)).
//		Or().
//		Where("hometown", deta.Equal("Greenville"))
//
// The zero-condition query matches every item.
type Query struct {
	// groups[i] is one AND group; the groups are joined by OR.
	groups []map[string]any
}

// NewQuery returns an empty query.
func NewQuery() *Query {
	return &Query{}
}

// Where adds a condition to the current AND group. Adding a second
// condition for the same field and operator overwrites the first.
func (q *Query) Where(field string, cond Condition) *Query {
	if len(q.groups) == 0 {
		q.groups = append(q.groups, map[string]any{})
	}

	group := q.groups[len(q.groups)-1]
	group[cond.fieldKey(field)] = cond.value

	return q
}

// Or closes the current AND group and starts a new one. Calling Or on
// an empty group is a no-op, so redundant calls cannot produce an
// empty group (which would match every item).
func (q *Query) Or() *Query {
	if len(q.groups) == 0 || len(q.groups[len(q.groups)-1]) == 0 {
		return q
	}

	q.groups = append(q.groups, map[string]any{})

	return q
}

// render produces the wire form: a list of AND objects joined by OR.
// Trailing empty groups are dropped.
func (q *Query) render() []map[string]any {
	groups := q.groups
	for len(groups) > 0 && len(groups[len(groups)-1]) == 0 {
		groups = groups[:len(groups)-1]
	}

	return groups
}
