// Package filter describes tag pre-filters applied before vector ranking.
package filter

import "fmt"

// MaxConditions caps the number of conditions in one expression.
const MaxConditions = 16

// Expression is a conjunction of required and excluded tag matches.
type Expression struct {
	must    []Condition
	mustNot []Condition
}

// NewExpression validates and creates an Expression.
func NewExpression(must, mustNot []Condition) (Expression, error) {
	if len(must)+len(mustNot) > MaxConditions {
		return Expression{}, fmt.Errorf("too many filter conditions (max %d)", MaxConditions)
	}
	return Expression{must: must, mustNot: mustNot}, nil
}

// BySource restricts hits to a single source id. An empty id yields an empty expression.
func BySource(field, sourceID string) Expression {
	if sourceID == "" {
		return Expression{}
	}
	return Expression{must: []Condition{{key: field, match: sourceID}}}
}

// Must returns the required matches.
func (e Expression) Must() []Condition { return e.must }

// MustNot returns the excluded matches.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.mustNot) == 0
}

// Condition is an exact match on a TAG field.
type Condition struct {
	key   string
	match string
}

// NewMatch creates an exact tag match condition.
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, match: match}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }
