package directives

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/crypthru/internal/directive"
	kerrors "github.com/PolarWolf314/crypthru/internal/errors"
	"github.com/PolarWolf314/crypthru/internal/files"
	"github.com/PolarWolf314/crypthru/internal/session"
	"github.com/PolarWolf314/crypthru/internal/watch"
)

// selection holds the fields shared by encrypt and decrypt.
type selection struct {
	grabber *files.Grabber
	wipe    bool
	gpg     bool
}

func (sel *selection) configure(d *directive.Decoder) error {
	var err error
	if sel.wipe, err = d.ReadBool("wipe", false); err != nil {
		return err
	}
	if sel.gpg, err = d.ReadBool("gpg", false); err != nil {
		return err
	}
	path, err := d.ReadString("path")
	if err != nil {
		return err
	}
	if sel.grabber, err = files.NewGrabber(path); err != nil {
		return &kerrors.ConfigError{Source: d.Source(), Key: "path", Err: err}
	}
	return d.CaptureFilters(sel.grabber)
}

func (sel *selection) useGPG(s *session.Session) bool {
	return sel.gpg || s.RunGPG
}

func (sel *selection) wipeIfApplicable(s *session.Session, paths []string) error {
	if !sel.wipe {
		return nil
	}
	return files.Wipe(paths, s.Preview, func(msg string) { s.Report("%s", msg) })
}

// watchDirectory hands control to a watcher on the grabber directory until
// the stop file appears. Each accepted new file goes through process.
func (sel *selection) watchDirectory(ctx context.Context, s *session.Session, verb string, accept files.Predicate, process func(path string) error) error {
	dir := sel.grabber.Directory()
	w, err := watch.New(dir)
	if err != nil {
		return err
	}
	w.StopOn(s.StopFile).Filter(func(path string) bool {
		return accept(path) && sel.grabber.Passes(path)
	})
	s.Log.Infof("Watching directory %s to %s new files. Drop a file named %q to terminate.", dir, verb, s.StopFile)

	err = w.React(ctx, func(ev watch.Event) error {
		if err := process(ev.Path); err != nil {
			return err
		}
		return sel.wipeIfApplicable(s, []string{ev.Path})
	})
	if err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	s.Log.Infof("Stopped watching %s", dir)
	return nil
}
