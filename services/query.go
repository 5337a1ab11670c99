package services

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"
)

// Predicate is a raw condition; columns are fixed by callers, values are
// always bound.
type Predicate struct {
	SQL  string
	Args []any
}

// ListQuery describes one read: equality and range predicates on a single
// table, related rows joined by foreign key, an ordering and a row limit.
// Column names come from code, never from request input.
type ListQuery struct {
	Eq       map[string]any
	In       map[string]any
	Gte      map[string]any
	Lte      map[string]any
	Where    []Predicate
	Order    string
	Limit    int
	Preloads []string
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

// Apply adds the query's clauses to db.
func (q ListQuery) Apply(db *gorm.DB) *gorm.DB {
	for _, k := range sortedKeys(q.Eq) {
		db = db.Where(k+" = ?", q.Eq[k])
	}
	for _, k := range sortedKeys(q.In) {
		db = db.Where(k+" IN ?", q.In[k])
	}
	for _, k := range sortedKeys(q.Gte) {
		db = db.Where(k+" >= ?", q.Gte[k])
	}
	for _, k := range sortedKeys(q.Lte) {
		db = db.Where(k+" <= ?", q.Lte[k])
	}
	for _, p := range q.Where {
		db = db.Where(p.SQL, p.Args...)
	}
	for _, p := range q.Preloads {
		db = db.Preload(p, orderByID)
	}
	if q.Order != "" {
		db = db.Order(q.Order)
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	return db
}

// Find runs q against T's table. Any failure, including a failed join,
// aborts the whole read with ErrLoadFailed. The result is never nil.
func Find[T any](ctx context.Context, db *gorm.DB, q ListQuery) ([]T, error) {
	var out []T
	if err := q.Apply(db.WithContext(ctx)).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}
