package reconcile

import (
	"time"

	"github.com/brizzai/tigoplanes/internal/deeplink"
)

// Recorder observes the flow for metrics.
type Recorder interface {
	LinkIgnored()
	LinkDuplicate(crossScreen bool)
	RunFinished(kind deeplink.Kind, state State, took time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) LinkIgnored()                                    {}
func (nopRecorder) LinkDuplicate(bool)                              {}
func (nopRecorder) RunFinished(deeplink.Kind, State, time.Duration) {}
