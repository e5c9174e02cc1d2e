package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moria.us/lymei/build/project"
)

const waitTimeout = 10 * time.Second

// waitFor reads states until one satisfies f.
func waitFor(t *testing.T, ch <-chan *State, f func(s *State) bool) *State {
	t.Helper()
	timeout := time.After(waitTimeout)
	for {
		select {
		case s, ok := <-ch:
			require.True(t, ok, "channel closed")
			if f(s) {
				return s
			}
		case <-timeout:
			t.Fatal("timed out waiting for state")
			return nil
		}
	}
}

func writeFile(t *testing.T, name, data string) {
	t.Helper()
	require.NoError(t, os.WriteFile(name, []byte(data), 0666))
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "songs"), 0777))
	cfg := filepath.Join(dir, project.DefaultConfig)
	src := filepath.Join(dir, "songs", "a.ly")
	writeFile(t, src, "c4 d4")
	writeFile(t, cfg, `{"title": "T", "sources": ["songs/a.ly"], "outDir": "out"}`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	log, _ := test.NewNullLogger()
	ch, err := WatchWith(ctx, dir, project.DefaultConfig, &Options{
		Logger: log,
		Delay:  10 * time.Millisecond,
	})
	require.NoError(t, err)

	s := waitFor(t, ch, func(s *State) bool { return true })
	require.NoError(t, s.Err)
	require.Len(t, s.Documents, 1)
	assert.NoError(t, s.Documents[0].Err)
	assert.Equal(t, "T", s.Project.Config.Title)

	// Source change.
	writeFile(t, src, "c4 q4")
	s = waitFor(t, ch, func(s *State) bool {
		return s.Err == nil && len(s.Documents) == 1 && s.Documents[0].Err != nil
	})
	assert.Nil(t, s.Documents[0].Result)

	writeFile(t, src, "e4")
	waitFor(t, ch, func(s *State) bool {
		return s.Err == nil && len(s.Documents) == 1 && s.Documents[0].Err == nil
	})

	// Config change.
	writeFile(t, cfg, `{"title": "U", "sources": ["songs/a.ly"], "outDir": "out"}`)
	s = waitFor(t, ch, func(s *State) bool {
		return s.Project != nil && s.Project.Config.Title == "U"
	})
	assert.Len(t, s.Documents, 1)

	// Invalid config.
	writeFile(t, cfg, `{"title": "V", "extra": 1}`)
	s = waitFor(t, ch, func(s *State) bool { return s.Err != nil })
	assert.Nil(t, s.Project)

	cancel()
	timeout := time.After(waitTimeout)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("channel not closed")
		}
	}
}

func TestWatchMissingDir(t *testing.T) {
	_, err := Watch(context.Background(), filepath.Join(t.TempDir(), "missing"), project.DefaultConfig)
	assert.Error(t, err)
}

func TestDelay(t *testing.T) {
	var d delay
	d.trigger(time.Millisecond)
	require.NotNil(t, d.channel)
	assert.Zero(t, d.remainingTime())
	d.trigger(time.Hour)
	assert.True(t, d.remainingTime() > time.Minute)
	<-d.channel
	d.stop()
	assert.Nil(t, d.channel)
	assert.Zero(t, d.remainingTime())
}
