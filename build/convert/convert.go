// Package convert translates LilyPond documents into Lychee-MEI.
package convert

import (
	"errors"
	"strconv"

	"github.com/sirupsen/logrus"

	"moria.us/lymei/build/beam"
	"moria.us/lymei/build/ly"
	"moria.us/lymei/build/mei"
)

var (
	// ErrVersion indicates a document written for an unsupported major
	// version of LilyPond.
	ErrVersion = errors.New("unsupported LilyPond version")
	// ErrKeySignature indicates a key with no MEI key signature.
	ErrKeySignature = errors.New("unknown key signature")
	// ErrShape indicates a document which contains no score, staff, or
	// music.
	ErrShape = errors.New("document must contain a score, a staff, or music")
)

// An Error is a fatal conversion error. Syntax errors are reported as
// *ly.Error instead.
type Error struct {
	Line int
	Col  int
	Err  error
}

func (e *Error) Error() string {
	var s string
	if e.Line != 0 {
		s += strconv.Itoa(e.Line) + ":"
		if e.Col != 0 {
			s += strconv.Itoa(e.Col) + ":"
		}
	}
	if s != "" {
		s += " "
	}
	s += e.Err.Error()
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

// A Diagnostic is a recoverable problem found during conversion. The
// conversion still succeeds, but the output may be missing attributes.
type Diagnostic struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

func (d *Diagnostic) String() string {
	return strconv.Itoa(d.Line) + ":" + strconv.Itoa(d.Col) + ": " + d.Message
}

// Options control a conversion.
type Options struct {
	// Logger receives a warning for each diagnostic. If nil, the standard
	// logger is used.
	Logger logrus.FieldLogger
	// Autobeam adds beams to every layer after conversion.
	Autobeam bool
}

// A Result is a converted document.
type Result struct {
	Section     *mei.Section
	Diagnostics []*Diagnostic
}

// A Listener is notified when a conversion starts and finishes.
type Listener interface {
	ConversionStarted()
	ConversionFinished(r *Result)
	ConversionFailed(err error)
}

// ConvertPure converts a LilyPond document to Lychee-MEI.
func ConvertPure(src []byte, opts *Options) (*Result, error) {
	f, err := ly.Parse(src)
	if err != nil {
		return nil, err
	}
	return Map(f, opts)
}

// Convert converts a LilyPond document to Lychee-MEI, notifying the listener
// when conversion starts and when it finishes or fails.
func Convert(src []byte, l Listener, opts *Options) (*Result, error) {
	l.ConversionStarted()
	r, err := ConvertPure(src, opts)
	if err != nil {
		l.ConversionFailed(err)
		return nil, err
	}
	l.ConversionFinished(r)
	return r, nil
}

// Map converts a parsed LilyPond document to Lychee-MEI.
func Map(f *ly.File, opts *Options) (*Result, error) {
	m := newMapper(opts)
	sec, err := m.doFile(f)
	if err != nil {
		return nil, err
	}
	if opts != nil && opts.Autobeam {
		if err := autobeam(sec); err != nil {
			return nil, err
		}
	}
	return &Result{Section: sec, Diagnostics: m.diags}, nil
}

func autobeam(sec *mei.Section) error {
	for i, st := range sec.Staffs {
		sd := sec.StaffDef(st.N)
		for _, l := range st.Layers {
			if err := beam.AutobeamPath(l, sd, strconv.Itoa(i+1)+"/"+strconv.Itoa(l.N)); err != nil {
				return err
			}
		}
	}
	return nil
}
