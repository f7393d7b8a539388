package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/dwinston/dbaudit/internal/logger"
	"github.com/dwinston/dbaudit/internal/store"
)

// Differ is the built-in diff engine. It matches records across two
// collection sources by a key field and reports added, removed, and changed
// records.
type Differ struct {
	log     logger.Logger
	connect func(ctx context.Context, p store.Params) (store.Conn, error)
}

// NewDiffer creates a diff engine.
func NewDiffer(log logger.Logger) *Differ {
	return &Differ{log: log, connect: store.Connect}
}

// Diff implements DiffEngine. Entries are emitted added, removed, then
// changed, each block ordered by key so output is deterministic.
func (d *Differ) Diff(ctx context.Context, old, new CollectionSource, rules MatchRules) (*DiffResult, error) {
	if rules.KeyField == "" {
		return nil, fmt.Errorf("match key field is required")
	}

	oldDocs, err := d.load(ctx, old, rules)
	if err != nil {
		return nil, fmt.Errorf("old source %s: %w", old.Describe(), err)
	}
	newDocs, err := d.load(ctx, new, rules)
	if err != nil {
		return nil, fmt.Errorf("new source %s: %w", new.Describe(), err)
	}

	result := &DiffResult{}

	if !rules.OnlyValues {
		for _, key := range sortedKeys(newDocs) {
			if _, ok := oldDocs[key]; !ok {
				result.Entries = append(result.Entries, ChangeEntry{
					Kind: ChangeAdded,
					Key:  key,
					Info: extraInfo(newDocs[key], rules.ExtraInfoFields),
				})
				result.Added++
			}
		}
		for _, key := range sortedKeys(oldDocs) {
			if _, ok := newDocs[key]; !ok {
				result.Entries = append(result.Entries, ChangeEntry{
					Kind: ChangeRemoved,
					Key:  key,
					Info: extraInfo(oldDocs[key], rules.ExtraInfoFields),
				})
				result.Removed++
			}
		}
	}

	if !rules.OnlyMissing {
		for _, key := range sortedKeys(oldDocs) {
			newDoc, ok := newDocs[key]
			if !ok {
				continue
			}
			oldDoc := oldDocs[key]
			for _, field := range rules.MustMatchFields {
				oldVal, _ := lookupField(oldDoc, field)
				newVal, _ := lookupField(newDoc, field)
				if fieldsMatch(oldVal, newVal, rules.Tolerances[field], hasTolerance(rules, field)) {
					continue
				}
				result.Entries = append(result.Entries, ChangeEntry{
					Kind:     ChangeChanged,
					Key:      key,
					Field:    field,
					OldValue: oldVal,
					NewValue: newVal,
				})
				result.Changed++
			}
		}
	}

	return result, nil
}

func (d *Differ) load(ctx context.Context, src CollectionSource, rules MatchRules) (map[string]store.Document, error) {
	conn, err := d.connect(ctx, src.Params)
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)

	cur, err := conn.Collection(src.Collection).Find(ctx, rules.Filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	docs := make(map[string]store.Document)
	skipped := 0
	for cur.Next(ctx) {
		var doc store.Document
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		keyVal, ok := lookupField(doc, rules.KeyField)
		if !ok {
			skipped++
			continue
		}
		docs[fmt.Sprint(keyVal)] = doc
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	if skipped > 0 {
		d.log.Warn(fmt.Sprintf("%d records in %s missing key field %q", skipped, src.Collection, rules.KeyField))
	}
	return docs, nil
}

func hasTolerance(rules MatchRules, field string) bool {
	_, ok := rules.Tolerances[field]
	return ok
}

func fieldsMatch(oldVal, newVal interface{}, tol Tolerance, hasTol bool) bool {
	if hasTol {
		of, ook := toFloat(oldVal)
		nf, nok := toFloat(newVal)
		if ook && nok {
			return tol.Within(of, nf)
		}
	}
	return fmt.Sprint(oldVal) == fmt.Sprint(newVal)
}

func extraInfo(doc store.Document, fields []string) map[string]interface{} {
	if len(fields) == 0 {
		return nil
	}
	info := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		if v, ok := lookupField(doc, f); ok {
			info[f] = v
		}
	}
	return info
}

func sortedKeys(m map[string]store.Document) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
