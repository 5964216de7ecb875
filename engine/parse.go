package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spacemeshos/go-researchsync/tech"
)

// ErrMalformedLine is returned for engine output that is not a technology line.
var ErrMalformedLine = errors.New("malformed technology line")

const absentProgress = "nil"

// ParseLine parses a dump line of the form name:researched:level:progress:infinite.
// A progress of "nil", or one that is not a finite number, is absent.
func ParseLine(line string) (tech.Scan, error) {
	fields := strings.Split(strings.TrimSpace(line), ":")
	if len(fields) != 5 {
		return tech.Scan{}, fmt.Errorf("%w: %d fields", ErrMalformedLine, len(fields))
	}
	name := fields[0]
	if name == "" {
		return tech.Scan{}, fmt.Errorf("%w: empty name", ErrMalformedLine)
	}
	researched, err := strconv.ParseBool(fields[1])
	if err != nil {
		return tech.Scan{}, fmt.Errorf("%w: researched %q", ErrMalformedLine, fields[1])
	}
	level, err := strconv.Atoi(fields[2])
	if err != nil || level < 0 {
		return tech.Scan{}, fmt.Errorf("%w: level %q", ErrMalformedLine, fields[2])
	}
	infinite, err := strconv.ParseBool(fields[4])
	if err != nil {
		return tech.Scan{}, fmt.Errorf("%w: infinite %q", ErrMalformedLine, fields[4])
	}
	progress := tech.NoProgress
	if fields[3] != absentProgress {
		if v, err := strconv.ParseFloat(fields[3], 64); err == nil {
			progress = tech.NewProgress(v)
		}
	}
	return tech.Scan{
		Name:       name,
		Researched: researched,
		Level:      level,
		Progress:   progress,
		Infinite:   infinite,
	}, nil
}
