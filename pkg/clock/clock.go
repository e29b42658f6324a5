// Package clock supplies current time and elapsed-time measurement to the
// metrics stores. It exists so that tests can substitute a deterministic
// clock instead of relying on the wall clock.
package clock

import "time"

// Clock provides the current time and stop watches for elapsed-time
// measurement.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// StopWatch returns a new, unstarted stop watch.
	StopWatch() StopWatch
}

// StopWatch measures elapsed time between Start and Stop.
type StopWatch interface {
	Start()
	Stop()

	// Split returns the elapsed time since Start without stopping the watch.
	Split() time.Duration

	// Total returns the elapsed time between Start and Stop.
	Total() time.Duration
}

// System is a Clock backed by the wall clock.
type System struct{}

// Now returns the current wall-clock time.
func (System) Now() time.Time { return time.Now() }

// StopWatch returns a wall-clock stop watch.
func (System) StopWatch() StopWatch { return &systemStopWatch{} }

type systemStopWatch struct {
	start time.Time
	end   time.Time
}

func (w *systemStopWatch) Start() { w.start = time.Now() }

func (w *systemStopWatch) Stop() { w.end = time.Now() }

func (w *systemStopWatch) Split() time.Duration { return time.Since(w.start) }

func (w *systemStopWatch) Total() time.Duration { return w.end.Sub(w.start) }
