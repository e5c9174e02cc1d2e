// Package watcher reconverts a project when its configuration or sources
// change.
package watcher

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"moria.us/lymei/build/project"
	"moria.us/lymei/build/report"
)

type bstate uint32

const (
	bstateNone bstate = iota
	bstateBuilding
	bstateCanceled
)

const rebuildDelay = 100 * time.Millisecond

// A State is the result of loading and converting a project. If the project
// could not be loaded, Err is set. Conversion errors for individual documents
// are stored in the documents.
type State struct {
	Err       error
	Project   *project.Project
	Documents []*project.Document
}

// Options control how a watched project is converted.
type Options struct {
	// Reporter is attached to each loaded project.
	Reporter *report.Reporter
	// Logger receives conversion diagnostics.
	Logger logrus.FieldLogger
	// Delay is the time to wait after a change before converting. If zero, a
	// short default is used.
	Delay time.Duration
}

type watcher struct {
	base      string
	config    string
	cfgpath   string
	opts      Options
	output    chan<- *State
	watcher   *fsnotify.Watcher
	delay     delay
	dirs      map[string]bool
	sources   map[string]bool
	project   *project.Project
	bstate    bstate
	wantbuild bool

	cancelfunc context.CancelFunc
	results    chan *State
}

// Watch loads the project and converts it, and converts it again every time
// the configuration or a source file changes. The channel is closed when the
// context is done or watching fails.
func Watch(ctx context.Context, baseDir, config string) (<-chan *State, error) {
	return WatchWith(ctx, baseDir, config, nil)
}

// WatchWith is like Watch, but with options.
func WatchWith(ctx context.Context, baseDir, config string, opts *Options) (<-chan *State, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	cfgpath := filepath.Join(baseDir, config)
	if err := fw.Add(filepath.Dir(cfgpath)); err != nil {
		fw.Close()
		return nil, err
	}
	ch := make(chan *State, 1)
	w := watcher{
		base:    baseDir,
		config:  config,
		cfgpath: cfgpath,
		output:  ch,
		watcher: fw,
		dirs:    map[string]bool{filepath.Dir(cfgpath): true},
		results: make(chan *State, 1),
	}
	if opts != nil {
		w.opts = *opts
	}
	if w.opts.Delay == 0 {
		w.opts.Delay = rebuildDelay
	}
	go w.watch(ctx)
	return ch, nil
}

func (w *watcher) watch(ctx context.Context) {
	defer close(w.output)
	defer w.watcher.Close()
	if err := w.watchFunc(ctx); err != nil && !errors.Is(err, context.Canceled) {
		w.send(ctx, &State{Err: err})
	}
	w.cancelBuild()
	w.delay.stop()
}

func (w *watcher) send(ctx context.Context, s *State) {
	select {
	case w.output <- s:
	case <-ctx.Done():
	}
}

func (w *watcher) watchFunc(ctx context.Context) error {
	fw := w.watcher
	w.loadProject(ctx)
	for {
		select {
		case ev, ok := <-fw.Events:
			if !ok {
				return errors.New("watcher channel closed")
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			if ev.Name == w.cfgpath {
				// Project config changed.
				w.loadProject(ctx)
			} else if w.project != nil && w.sources[ev.Name] {
				// Source file changed.
				w.cancelBuild()
				w.triggerBuild()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("watcher channel closed")
			}
			return err
		case <-w.delay.channel:
			w.delay.channel = nil
			if w.wantbuild && w.bstate == bstateNone {
				if rem := w.delay.remainingTime(); rem > 0 {
					w.delay.trigger(rem)
				} else {
					w.startBuild(ctx)
				}
			}
		case r := <-w.results:
			if w.bstate == bstateBuilding {
				w.cancelfunc()
				w.cancelfunc = nil
				w.send(ctx, r)
			}
			w.bstate = bstateNone
			if w.wantbuild && w.delay.channel == nil {
				w.startBuild(ctx)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *watcher) loadProject(ctx context.Context) {
	w.cancelBuild()
	p, err := project.Load(w.base, w.config)
	if err != nil {
		w.project = nil
		w.sources = nil
		w.send(ctx, &State{Err: err})
		return
	}
	p.Reporter = w.opts.Reporter
	p.Logger = w.opts.Logger
	w.sources = make(map[string]bool)
	dirs := map[string]bool{filepath.Dir(w.cfgpath): true}
	for _, f := range p.SourceFiles() {
		w.sources[f] = true
		dirs[filepath.Dir(f)] = true
	}
	for dir := range w.dirs {
		if !dirs[dir] {
			if err := w.watcher.Remove(dir); err != nil {
				logrus.Warnf("could not stop watching %q: %v", dir, err)
			}
		}
	}
	for dir := range dirs {
		if !w.dirs[dir] {
			if err := w.watcher.Add(dir); err != nil {
				logrus.Warnf("could not watch %q: %v", dir, err)
				delete(dirs, dir)
			}
		}
	}
	w.dirs = dirs
	w.project = p
	w.triggerBuild()
}

func (w *watcher) cancelBuild() {
	switch w.bstate {
	case bstateNone, bstateCanceled:
	case bstateBuilding:
		w.cancelfunc()
		w.cancelfunc = nil
		w.bstate = bstateCanceled
	default:
		panic("unknown state")
	}
	w.wantbuild = false
}

func (w *watcher) triggerBuild() {
	if w.project == nil {
		panic("nil project")
	}
	w.delay.trigger(w.opts.Delay)
	w.wantbuild = true
}

func (w *watcher) startBuild(ctx context.Context) {
	if w.bstate != bstateNone {
		panic("invalid state")
	}
	if w.project == nil {
		panic("nil project")
	}
	ctx, cancel := context.WithCancel(ctx)
	go w.build(ctx, w.project)
	w.cancelfunc = cancel
	w.bstate = bstateBuilding
	w.wantbuild = false
}

func (w *watcher) build(ctx context.Context, p *project.Project) {
	s := State{Project: p}
	s.Documents, s.Err = p.ConvertAll(ctx)
	w.results <- &s
}
