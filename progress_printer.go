package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/foldkeep/foldsync/internal/syncengine"
)

// attachProgressPrinter subscribes a line-overwriting progress printer to
// bus when stdout is a real terminal and --json wasn't requested, and
// returns a detach func to call once the run is done. On a non-terminal
// (piped output, a CI log, --json) it's a no-op: the events would just be
// noise in a file, and --json callers want one clean result object.
func attachProgressPrinter(bus *syncengine.Bus) (detach func()) {
	if flagJSON || flagQuiet || !isatty.IsTerminal(os.Stdout.Fd()) {
		return func() {}
	}

	ch := make(chan syncengine.ProgressEvent, 16)
	bus.Subscribe(ch)

	done := make(chan struct{})

	go func() {
		defer close(done)

		for ev := range ch {
			fmt.Printf("\r\033[K%s (%d/%d) %s", ev.Operation, ev.Processed, ev.Total, ev.Filename)
		}
	}()

	return func() {
		bus.Unsubscribe(ch)
		close(ch)
		<-done
		fmt.Print("\r\033[K")
	}
}
