package engine

import (
	"github.com/alexisbeaulieu97/converge/internal/config"
	"github.com/alexisbeaulieu97/converge/internal/model"
)

// Observer is notified as each resource starts and reaches a terminal status.
// Calls happen on the runner's goroutine, one resource at a time.
type Observer interface {
	ResourceStarted(recipe string, res *config.Resource)
	ResourceFinished(result model.ResourceResult)
}

// Observers fans out to several observers in order.
type Observers []Observer

// ResourceStarted notifies every non-nil observer in order.
func (o Observers) ResourceStarted(recipe string, res *config.Resource) {
	for _, obs := range o {
		if obs != nil {
			obs.ResourceStarted(recipe, res)
		}
	}
}

// ResourceFinished notifies every non-nil observer in order.
func (o Observers) ResourceFinished(result model.ResourceResult) {
	for _, obs := range o {
		if obs != nil {
			obs.ResourceFinished(result)
		}
	}
}

type nopObserver struct{}

func (nopObserver) ResourceStarted(string, *config.Resource) {}
func (nopObserver) ResourceFinished(model.ResourceResult)    {}
