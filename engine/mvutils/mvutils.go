package mvutils

import "github.com/metaverse/metaverse-server/engine/mvlog"

// RunPanicless calls a function panic-freely
func RunPanicless(f func()) (paniced bool) {
	defer func() {
		err := recover()
		if err != nil {
			mvlog.TraceError("%v panic: %v", f, err)
			paniced = true
		}
	}()

	f()
	return
}

// RepeatUntilPanicless runs the function repeatedly until there is no panic
func RepeatUntilPanicless(f func()) {
	for !RunPanicless(f) {
	}
}
