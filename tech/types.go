// Package tech defines the research state tracked by a node and exchanged
// with the rest of the cluster through the relay.
package tech

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
)

// Epsilon is the magnitude below which contributions and contribution deltas
// are treated as exactly zero. Repeated subtraction of cluster progress from
// local progress accumulates drift of roughly this order.
const Epsilon = 1000 * 0x1p-52

// Progress is the fractional completion of a technology toward its next
// milestone. The zero value is absent progress, which is distinct from 0.
type Progress struct {
	value float64
	valid bool
}

// NoProgress is absent progress.
var NoProgress = Progress{}

// NewProgress returns progress holding v. Non-finite values yield absent progress.
func NewProgress(v float64) Progress {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NoProgress
	}
	return Progress{value: v, valid: true}
}

// Get returns the numeric value and whether it is present.
func (p Progress) Get() (float64, bool) {
	return p.value, p.valid
}

// Valid reports whether progress is present.
func (p Progress) Valid() bool {
	return p.valid
}

// Or returns the value or def when progress is absent.
func (p Progress) Or(def float64) float64 {
	if !p.valid {
		return def
	}
	return p.value
}

// Equal reports whether both are absent or both hold the same value.
func (p Progress) Equal(o Progress) bool {
	return p.valid == o.valid && p.value == o.value
}

// String renders absent progress as "nil", matching the engine's dump format.
func (p Progress) String() string {
	if !p.valid {
		return "nil"
	}
	return strconv.FormatFloat(p.value, 'g', -1, 64)
}

func (p Progress) MarshalJSON() ([]byte, error) {
	if !p.valid {
		return []byte("null"), nil
	}
	return json.Marshal(p.value)
}

func (p *Progress) UnmarshalJSON(data []byte) error {
	var n Number
	if err := n.UnmarshalJSON(data); err != nil {
		return err
	}
	if !n.Valid {
		*p = NoProgress
		return nil
	}
	*p = NewProgress(n.Value)
	return nil
}

// Record is the state of one technology.
type Record struct {
	// Researched is set once the finite form of the technology is complete.
	Researched bool
	// Level is the current tier. Infinite technologies are compared by level.
	Level    int
	Infinite bool
	Progress Progress
	// Contribution is this node's own share of progress accumulated since the
	// last time the technology advanced. It is only authoritative on the node
	// that owns the record.
	Contribution float64
}

// Advanced reports whether to is further along than from. Infinite
// technologies compare by level, finite ones by the researched flag.
func Advanced(from, to Record, infinite bool) bool {
	if infinite {
		return from.Level < to.Level
	}
	return !from.Researched && to.Researched
}

// wireRecord is the published form of a record. Flags are encoded as 0/1 so
// that older agents comparing them numerically keep working.
type wireRecord struct {
	Researched   int      `json:"researched"`
	Level        int      `json:"level"`
	Progress     Progress `json:"progress"`
	Contribution float64  `json:"contribution"`
	Infinite     int      `json:"infinite"`
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireRecord{
		Researched:   boolToInt(r.Researched),
		Level:        r.Level,
		Progress:     r.Progress,
		Contribution: r.Contribution,
		Infinite:     boolToInt(r.Infinite),
	})
}

func (r Record) String() string {
	return fmt.Sprintf("researched=%t level=%d infinite=%t progress=%s contribution=%g",
		r.Researched, r.Level, r.Infinite, r.Progress, r.Contribution)
}

// Map maps technology name to its record.
type Map map[string]Record

// Clone returns a copy of m. Records are values so the copy is independent.
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	c := make(Map, len(m))
	for name, r := range m {
		c[name] = r
	}
	return c
}

// Names returns technology names in sorted order.
func (m Map) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Scan is one technology line reported by the execution engine.
type Scan struct {
	Name       string
	Researched bool
	Level      int
	Progress   Progress
	Infinite   bool
}
