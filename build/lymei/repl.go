package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/sirupsen/logrus"

	"moria.us/lymei/build/convert"
	"moria.us/lymei/build/ly"
	"moria.us/lymei/build/mei"
)

const (
	historyFile = ".lymei_history"
	promptMain  = "ly> "
	promptCont  = "... "
)

// endPos returns the position just past the end of the text.
func endPos(src string) (line, col int) {
	line = 1 + strings.Count(src, "\n")
	last := src[strings.LastIndexByte(src, '\n')+1:]
	return line, 1 + len(last)
}

// incomplete returns true if err shows that the input ended before the
// document did, so more lines may complete it.
func incomplete(src string, err error) bool {
	var e *ly.Error
	if !errors.As(err, &e) {
		return false
	}
	line, col := endPos(strings.TrimRight(src, " \t\r\n"))
	return e.Line > line || e.Line == line && e.Col >= col
}

type session struct {
	out      io.Writer
	autobeam bool
	json     bool
}

// command runs a REPL command, and returns false if the session should end.
func (s *session) command(cmd string) bool {
	switch strings.ToLower(cmd) {
	case ":quit", ":q":
		return false
	case ":autobeam":
		s.autobeam = !s.autobeam
		fmt.Fprintln(s.out, "autobeam:", s.autobeam)
	case ":json":
		s.json = !s.json
		fmt.Fprintln(s.out, "json:", s.json)
	default:
		fmt.Fprintln(s.out, "commands: :autobeam :json :quit")
	}
	return true
}

// eval converts the input and prints the result and its diagnostics.
func (s *session) eval(src string) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	r, err := convert.ConvertPure([]byte(src), &convert.Options{
		Logger:   log,
		Autobeam: s.autobeam,
	})
	if err != nil {
		fmt.Fprintln(s.out, "error:", err)
		return
	}
	var data []byte
	if s.json {
		data, err = mei.MarshalJSON(r.Section)
	} else {
		data, err = mei.MarshalXML(r.Section, "")
	}
	if err != nil {
		fmt.Fprintln(s.out, "error:", err)
		return
	}
	s.out.Write(data)
	for _, d := range r.Diagnostics {
		fmt.Fprintln(s.out, "warning:", d)
	}
}

// read reads lines until they form a complete document.
func read(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Aborted with Ctrl-C.
			return "", true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if _, err := ly.Parse([]byte(src)); err != nil && incomplete(src, err) && line != "" {
			continue
		}
		return src, true
	}
}

func runRepl(out io.Writer, autobeam bool) error {
	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		ln.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			ln.WriteHistory(f)
			f.Close()
		}
	}()

	s := session{out: out, autobeam: autobeam}
	for {
		src, ok := read(ln)
		if !ok {
			fmt.Fprintln(out)
			return nil
		}
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		if strings.HasPrefix(src, ":") {
			if !s.command(src) {
				return nil
			}
			continue
		}
		s.eval(src)
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))
	}
}
