package capture

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/atinyakov/accessgate/internal/matcher"
)

// Direction is a classified phone orientation.
type Direction string

const (
	Up       Direction = "UP"
	Down     Direction = "DOWN"
	Left     Direction = "LEFT"
	Right    Direction = "RIGHT"
	FaceUp   Direction = "FACE_UP"
	FaceDown Direction = "FACE_DOWN"
)

var directions = []Direction{Up, Down, Left, Right, FaceUp, FaceDown}

// ParseDirection accepts a direction token case-insensitively.
func ParseDirection(s string) (Direction, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, d := range directions {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

const (
	// gravityThreshold is the minimum acceleration (m/s²) on the dominant axis.
	gravityThreshold = 7.0
	// minGap is the minimum time between any two recorded directions.
	minGap = 250 * time.Millisecond
	// sameDirectionGap suppresses sensor jitter around the current direction.
	sameDirectionGap = 350 * time.Millisecond
)

// Classify maps an accelerometer sample to the dominant direction, or
// reports false when no axis clearly dominates.
func Classify(ax, ay, az float64) (Direction, bool) {
	x, y, z := math.Abs(ax), math.Abs(ay), math.Abs(az)
	switch {
	case x > y && x > z && x > gravityThreshold:
		if ax > 0 {
			return Right, true
		}
		return Left, true
	case y > x && y > z && y > gravityThreshold:
		if ay > 0 {
			return Up, true
		}
		return Down, true
	case z > x && z > y && z > gravityThreshold:
		if az > 0 {
			return FaceUp, true
		}
		return FaceDown, true
	}
	return "", false
}

// FlipRecorder accumulates direction changes from a stream of samples.
// The zero value is ready to use. It is not safe for concurrent use.
type FlipRecorder struct {
	flips    []Direction
	last     Direction
	lastTime time.Time
}

// Observe feeds one accelerometer sample taken at the given time and reports
// whether a new direction was recorded.
func (r *FlipRecorder) Observe(at time.Time, ax, ay, az float64) bool {
	dir, ok := Classify(ax, ay, az)
	if !ok {
		return false
	}
	if !r.lastTime.IsZero() {
		since := at.Sub(r.lastTime)
		if dir == r.last && since < sameDirectionGap {
			return false
		}
		if since < minGap {
			return false
		}
	}
	if dir == r.last {
		return false
	}
	r.flips = append(r.flips, dir)
	r.last = dir
	r.lastTime = at
	return true
}

// Directions returns the recorded sequence.
func (r *FlipRecorder) Directions() []Direction {
	return append([]Direction(nil), r.flips...)
}

// Payload encodes the recorded sequence as comma-joined tokens.
func (r *FlipRecorder) Payload() string {
	tokens := make([]string, len(r.flips))
	for i, d := range r.flips {
		tokens[i] = string(d)
	}
	return matcher.EncodeTokens(tokens)
}

// Reset clears the recording.
func (r *FlipRecorder) Reset() {
	*r = FlipRecorder{}
}
