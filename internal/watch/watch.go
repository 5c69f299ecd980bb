package watch

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"time"

	kerrors "github.com/PolarWolf314/crypthru/internal/errors"
	"github.com/fsnotify/fsnotify"
)

// State tracks the watcher life cycle: Idle, then Watching, then Stopped.
type State int

const (
	Idle State = iota
	Watching
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Watching:
		return "WATCHING"
	default:
		return "STOPPED"
	}
}

// Event is one filesystem change inside the watched directory.
type Event struct {
	Op fsnotify.Op
	// Name is the base name of the subject, Path its full path.
	Name string
	Path string
}

// DefaultSettle is how long a new file must go without writes before it is
// handed to the reaction.
const DefaultSettle = 250 * time.Millisecond

// Reaction handles one accepted event.
type Reaction func(Event) error

// Watcher reacts to filesystem events in a single directory, one event at a
// time on the calling goroutine.
type Watcher struct {
	dir    string
	ops    fsnotify.Op
	stop   string
	filter func(path string) bool
	settle time.Duration
	state  State
	fs     *fsnotify.Watcher

	// pending holds events read while waiting for a file to settle.
	pending []fsnotify.Event
}

// New registers a watch on dir for the given operations, file creation by
// default. Events occurring after New returns are never lost, even before
// React is called.
func New(dir string, ops ...fsnotify.Op) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: watching %s: %v", kerrors.ErrIO, dir, err)
	}
	if err := fs.Add(dir); err != nil {
		fs.Close()
		return nil, fmt.Errorf("%w: watching %s: %v", kerrors.ErrIO, dir, err)
	}
	w := &Watcher{dir: dir, ops: fsnotify.Create, settle: DefaultSettle, fs: fs}
	if len(ops) > 0 {
		w.ops = 0
		for _, op := range ops {
			w.ops |= op
		}
	}
	return w, nil
}

// StopOn sets the sentinel file name that ends watching.
func (w *Watcher) StopOn(name string) *Watcher {
	w.stop = name
	return w
}

// Filter sets a predicate on the subject path; rejected events are skipped.
func (w *Watcher) Filter(accept func(path string) bool) *Watcher {
	w.filter = accept
	return w
}

// Settle sets how long a subject must go without writes before the
// reaction sees it. Zero reacts on the first event.
func (w *Watcher) Settle(d time.Duration) *Watcher {
	w.settle = d
	return w
}

func (w *Watcher) State() State { return w.state }

// Close releases the OS watch. A closed watcher cannot be restarted.
func (w *Watcher) Close() error {
	w.state = Stopped
	return w.fs.Close()
}

// Events yields matching events until ctx is done or the watch is closed.
// The sequence is lazy and effectively infinite; it can only be restarted by
// creating a new Watcher.
func (w *Watcher) Events(ctx context.Context) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			e, ok, err := w.next(ctx)
			if !ok {
				return
			}
			if err != nil {
				if !yield(Event{}, err) {
					return
				}
				continue
			}
			if e.Op&w.ops == 0 {
				continue
			}
			ev := Event{Op: e.Op, Name: filepath.Base(e.Name), Path: e.Name}
			if !yield(ev, nil) {
				return
			}
		}
	}
}

// next returns the oldest unread OS event. ok is false once ctx is done or
// the watch is closed.
func (w *Watcher) next(ctx context.Context) (e fsnotify.Event, ok bool, err error) {
	if len(w.pending) > 0 {
		e, w.pending = w.pending[0], w.pending[1:]
		return e, true, nil
	}
	select {
	case <-ctx.Done():
		return e, false, nil
	case e, ok = <-w.fs.Events:
		return e, ok, nil
	case werr, open := <-w.fs.Errors:
		if !open {
			return e, false, nil
		}
		return e, true, fmt.Errorf("%w: watching %s: %v", kerrors.ErrIO, w.dir, werr)
	}
}

// waitSettled returns once path has gone the settle time without a write.
// Other events read meanwhile are queued for Events.
func (w *Watcher) waitSettled(ctx context.Context, path string) error {
	if w.settle <= 0 {
		return nil
	}
	timer := time.NewTimer(w.settle)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case e, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if e.Name == path && e.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				timer.Reset(w.settle)
				continue
			}
			w.pending = append(w.pending, e)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("%w: watching %s: %v", kerrors.ErrIO, w.dir, err)
		}
	}
}

// React blocks, calling reaction for every accepted event once its subject
// has settled, until the stop sentinel appears or ctx is cancelled; both
// end with a nil error. An error from reaction or from the OS watch stops
// watching and is returned. The watch is closed when React returns.
func (w *Watcher) React(ctx context.Context, reaction Reaction) error {
	defer w.Close()
	w.state = Watching
	for ev, err := range w.Events(ctx) {
		if err != nil {
			return err
		}
		if w.stop != "" && ev.Name == w.stop {
			return nil
		}
		if w.filter != nil && !w.filter(ev.Path) {
			continue
		}
		if err := w.waitSettled(ctx, ev.Path); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		// Removed again before it settled.
		if _, err := os.Stat(ev.Path); err != nil {
			continue
		}
		if err := reaction(ev); err != nil {
			return err
		}
	}
	return nil
}
