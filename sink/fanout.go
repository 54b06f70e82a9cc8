package sink

import (
	"go.uber.org/multierr"

	"stylist/style"
)

// Fanout mounts styles to several sinks at once. Mount either succeeds on
// every sink or is rolled back on the ones that already accepted the style.
type Fanout []style.Sink

// Mount mounts style on all sinks in order.
func (f Fanout) Mount(className, text string) error {
	for i, s := range f {
		if err := s.Mount(className, text); err != nil {
			for _, done := range f[:i] {
				err = multierr.Append(err, done.Unmount(className))
			}
			return err
		}
	}
	return nil
}

// Unmount unmounts style from every sink, errors are combined.
func (f Fanout) Unmount(className string) error {
	var err error
	for _, s := range f {
		err = multierr.Append(err, s.Unmount(className))
	}
	return err
}
