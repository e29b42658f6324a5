// Package track holds the read-only descriptors of what a benchmark runs:
// a track, its indices, and its challenges with their operation schedules.
// The metrics core only reads names and schedules; loading and validating
// track definitions happens elsewhere.
package track

// OperationType classifies an operation within a challenge schedule.
type OperationType string

const (
	OperationTypeIndex  OperationType = "index"
	OperationTypeSearch OperationType = "search"
)

// Operation is a single named unit of work in a challenge schedule.
type Operation struct {
	Name string
	Type OperationType
}

// Task wraps one operation occurrence in a schedule. The same operation may
// appear multiple times.
type Task struct {
	Operation Operation
}

// Challenge is a named workload with an ordered operation schedule.
type Challenge struct {
	Name     string
	Schedule []Task
}

// Index describes one index a track manages.
type Index struct {
	Name string
}

// Track is the root descriptor of a benchmark definition.
type Track struct {
	Name       string
	Indices    []Index
	Challenges []Challenge
}

// FindChallenge returns the challenge with the given name, or false when the
// track does not define it.
func (t Track) FindChallenge(name string) (Challenge, bool) {
	for _, c := range t.Challenges {
		if c.Name == name {
			return c, true
		}
	}
	return Challenge{}, false
}
