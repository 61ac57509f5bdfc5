// Package services holds the order lifecycle engine and the menu and user
// services around it. Every operation takes the calling identity and
// consults the access gate itself, so the HTTP layer only translates.
package services

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Option tweaks the clock and ID source of a service.
type Option func(*runtime)

type runtime struct {
	now   func() time.Time
	newID func() string
}

func WithClock(now func() time.Time) Option {
	return func(r *runtime) { r.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(r *runtime) { r.newID = newID }
}

func newRuntime(opts []Option) runtime {
	r := runtime{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func (r runtime) timestamp() time.Time {
	return r.now().UTC()
}

var validate = validator.New()
