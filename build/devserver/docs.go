package main

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"moria.us/lymei/build/project"
	"moria.us/lymei/build/watcher"
)

type docState struct {
	err     error
	project *project.Project
	list    []*project.Document
	byName  map[string]*project.Document
}

func newDocState(s *watcher.State) *docState {
	if s == nil {
		return nil
	}
	d := docState{
		err:     s.Err,
		project: s.Project,
		byName:  make(map[string]*project.Document, len(s.Documents)),
	}
	if d.err != nil {
		logrus.Errorln("Load:", d.err)
		return &d
	}
	d.list = s.Documents
	var nwarn int
	for _, doc := range d.list {
		d.byName[doc.Name] = doc
		if doc.Err != nil {
			logrus.Errorln("Convert:", doc.Err)
		} else {
			nwarn += len(doc.Result.Diagnostics)
		}
	}
	d.err = project.Failed(d.list)
	logrus.Infof("Converted %d documents, %d warnings.", len(d.list), nwarn)
	return &d
}

type docs struct {
	lock      sync.RWMutex
	state     *docState
	listeners []chan<- *docState
}

func (c *docs) watch(ctx context.Context, ch <-chan *watcher.State) {
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				logrus.Fatalln("watch channel closed")
			}
			c.update(newDocState(s))
		case <-ctx.Done():
			return
		}
	}
}

// update sets the current state and sends it to all listeners. Listeners
// which are not ready to receive are closed and removed.
func (c *docs) update(d *docState) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.state = d
	ls := c.listeners
	var pos int
	for _, l := range ls {
		select {
		case l <- d:
			ls[pos] = l
			pos++
		default:
			close(l)
		}
	}
	c.listeners = ls[:pos]
	for ; pos < len(ls); pos++ {
		ls[pos] = nil
	}
}

func (c *docs) addListener(ch chan<- *docState) *docState {
	if ch == nil {
		panic("nil channel")
	}

	c.lock.Lock()
	d := c.state
	c.listeners = append(c.listeners, ch)
	c.lock.Unlock()

	return d
}

func (c *docs) removeListener(ch chan<- *docState) {
	c.lock.Lock()
	for i, l := range c.listeners {
		if l == ch {
			c.listeners[i] = c.listeners[len(c.listeners)-1]
			c.listeners[len(c.listeners)-1] = nil
			c.listeners = c.listeners[:len(c.listeners)-1]
			close(ch)
			break
		}
	}
	c.lock.Unlock()
}

// getState returns the current state, waiting until the first state arrives
// or the context is done.
func (c *docs) getState(ctx context.Context) (*docState, error) {
	c.lock.RLock()
	d := c.state
	c.lock.RUnlock()
	if d != nil {
		return d, nil
	}

	ch := make(chan *docState, 1)
	c.lock.Lock()
	if d = c.state; d != nil {
		c.lock.Unlock()
		return d, nil
	}
	c.listeners = append(c.listeners, ch)
	c.lock.Unlock()
	defer c.removeListener(ch)

	for {
		select {
		case d, ok := <-ch:
			if !ok {
				return nil, context.Canceled
			}
			if d != nil {
				return d, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
