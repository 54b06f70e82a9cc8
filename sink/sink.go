// Package sink provides surfaces compiled styles are mounted to.
package sink

import (
	"errors"
)

var (
	// ErrAlreadyMounted is returned when class name is already present on the surface.
	ErrAlreadyMounted = errors.New("style already mounted")
	// ErrNotMounted is returned when unmounting class name surface does not have.
	ErrNotMounted = errors.New("style not mounted")
)

// Entry is a single mounted style.
type Entry struct {
	ClassName string
	Text      string
}
