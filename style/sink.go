package style

// Sink is the surface compiled styles are attached to, for example document
// head in a browser. Registry calls Mount once when a style is created and
// Unmount once when the last handle is released. Calls are serialized by the
// registry.
type Sink interface {
	// Mount makes rendered text available under class name. Failure aborts
	// style creation.
	Mount(className, text string) error
	// Unmount removes previously mounted style. Failures are logged and
	// otherwise ignored.
	Unmount(className string) error
}
