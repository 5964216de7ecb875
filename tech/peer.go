package tech

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a leniently decoded numeric field of a published record.
//
// Published metadata is opaque to the relay and may come from agents of any
// version, so a field can be a number, a boolean, a numeric string or junk.
// Decoding never fails; fields that do not hold a finite number are left
// invalid and the record is excluded wherever that field is needed.
type Number struct {
	Value float64
	Valid bool
}

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	switch x := v.(type) {
	case float64:
		n.set(x)
	case bool:
		if x {
			n.set(1)
		} else {
			n.set(0)
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			n.set(f)
		}
	}
	return nil
}

func (n *Number) set(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	n.Value = v
	n.Valid = true
}

// Int returns the value as a non-negative integer if it is one.
func (n Number) Int() (int, bool) {
	if !n.Valid || n.Value < 0 || n.Value != math.Trunc(n.Value) || n.Value > math.MaxInt32 {
		return 0, false
	}
	return int(n.Value), true
}

// PeerRecord is a technology record as published by some node.
type PeerRecord struct {
	Researched   Number `json:"researched"`
	Level        Number `json:"level"`
	Progress     Number `json:"progress"`
	Contribution Number `json:"contribution"`
	Infinite     Number `json:"infinite"`
}

// Marker returns the completion fields of the record. ok is false when any of
// researched, level or infinite is not numeric.
func (p PeerRecord) Marker() (researched bool, level int, infinite bool, ok bool) {
	if !p.Researched.Valid || !p.Infinite.Valid {
		return false, 0, false, false
	}
	level, ok = p.Level.Int()
	if !ok {
		return false, 0, false, false
	}
	return p.Researched.Value > 0, level, p.Infinite.Value > 0, true
}

// Record converts a well-formed peer record. Absent or non-numeric progress
// becomes absent progress, a non-numeric contribution becomes zero.
func (p PeerRecord) Record() (Record, bool) {
	researched, level, infinite, ok := p.Marker()
	if !ok {
		return Record{}, false
	}
	r := Record{
		Researched: researched,
		Level:      level,
		Infinite:   infinite,
	}
	if p.Progress.Valid {
		r.Progress = NewProgress(p.Progress.Value)
	}
	if p.Contribution.Valid {
		r.Contribution = p.Contribution.Value
	}
	return r, true
}

// PeerSnapshot is the research map another node published at its last sync.
type PeerSnapshot struct {
	NodeID   string
	Research map[string]PeerRecord
}

// DecodeResearch decodes a published research object. Entries that are not
// JSON objects are dropped; the whole object is rejected only if it is not an
// object at all.
func DecodeResearch(data json.RawMessage) (map[string]PeerRecord, bool) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return nil, false
	}
	research := make(map[string]PeerRecord, len(raw))
	for name, entry := range raw {
		var rec PeerRecord
		if err := json.Unmarshal(entry, &rec); err != nil {
			continue
		}
		research[name] = rec
	}
	return research, true
}

// Records converts the well-formed entries of a published research object.
func Records(research map[string]PeerRecord) Map {
	m := make(Map, len(research))
	for name, p := range research {
		if r, ok := p.Record(); ok {
			m[name] = r
		}
	}
	return m
}
