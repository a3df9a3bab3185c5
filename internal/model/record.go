// Package model holds the record metadata every persisted entity embeds, the
// entity registry, and the small amount of SQL needed to create tables and
// keep timestamps honest.
//
// A concrete entity embeds Record by value and extends its serialisation:
//
//	type Widget struct {
//		model.Record
//		Name string `db:"name"`
//	}
//
//	func (w *Widget) Fields() map[string]any {
//		return model.Merge(w.Record.Fields(), map[string]any{"name": w.Name})
//	}
package model

import (
	"maps"
	"time"
)

// Record contributes identity and timestamps.  ID is assigned by the
// database on insert; CreatedAt is set once; UpdatedAt is refreshed on every
// update.
type Record struct {
	ID        int64     `db:"id"         json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Meta returns r itself so Insert and Update can reach the embedded value
// through the Entity interface.
func (r *Record) Meta() *Record { return r }

// Fields is the base serialisation.  Unset timestamps serialise as nil.
func (r *Record) Fields() map[string]any {
	return map[string]any{
		"id":         r.ID,
		"created_at": isoOrNil(r.CreatedAt),
		"updated_at": isoOrNil(r.UpdatedAt),
	}
}

// Merge copies extra over base and returns base.
func Merge(base, extra map[string]any) map[string]any {
	maps.Copy(base, extra)
	return base
}

// ISO formats t as RFC 3339 in UTC with full sub-second precision.
func ISO(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

// ParseISO is the inverse of ISO.
func ParseISO(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }

func isoOrNil(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return ISO(t)
}

// Now is the clock used for timestamps.  Microsecond precision is the finest
// every supported engine stores.
var Now = func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

// stamp sets both timestamps for a fresh row.
func (r *Record) stamp() {
	now := Now()
	r.CreatedAt, r.UpdatedAt = now, now
}

// touch refreshes UpdatedAt, guaranteeing it moves forward even when the
// clock has not ticked since the last write.
func (r *Record) touch() {
	now := Now()
	if !now.After(r.UpdatedAt) {
		now = r.UpdatedAt.Add(time.Microsecond)
	}
	r.UpdatedAt = now
}
