// Package ly parses the subset of LilyPond that the converter understands.
package ly

import "strconv"

// A Pos is a position in the source text. Lines and columns start at 1, and
// columns count bytes.
type Pos struct {
	Line int
	Col  int
}

// Position returns the position itself, so that every node type which embeds
// a Pos reports its position.
func (p Pos) Position() Pos { return p }

func (p Pos) String() string {
	return strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Col)
}

// A Kind identifies the grammar rule which produced a node.
type Kind string

const (
	KindNote          Kind = "note"
	KindChord         Kind = "chord"
	KindRest          Kind = "rest"
	KindMeasureRest   Kind = "measure_rest"
	KindSpacer        Kind = "spacer"
	KindBarcheck      Kind = "barcheck"
	KindClef          Kind = "clef"
	KindKey           Kind = "key"
	KindTime          Kind = "time"
	KindInstrName     Kind = "instr_name"
	KindStaffProperty Kind = "staff_property"
)

// A Node is a single item in a voice: a note, rest, barcheck, setting, etc.
type Node interface {
	Position() Pos
	Kind() Kind
}

// A Setting is a node which changes a property of the staff, such as the
// clef or the time signature.
type Setting interface {
	Node
	setting()
}

// =============================================================================

// A Shape is the form of the music in a file.
type Shape int

const (
	// ShapeNone is a file with no music.
	ShapeNone Shape = iota
	// ShapeScore is a file containing \score or \new Score.
	ShapeScore
	// ShapeStaff is a file containing a single \new Staff.
	ShapeStaff
	// ShapeMusic is a file containing staff content with no wrapper.
	ShapeMusic
)

func (s Shape) String() string {
	switch s {
	case ShapeNone:
		return "none"
	case ShapeScore:
		return "score"
	case ShapeStaff:
		return "staff"
	case ShapeMusic:
		return "music"
	default:
		return "Shape(" + strconv.Itoa(int(s)) + ")"
	}
}

// A File is a parsed LilyPond document. At most one of Score, Staff, and
// Music is set.
type File struct {
	Version  *Version
	Language *Language
	Score    *Score
	Staff    *Staff
	Music    *StaffContent
}

// Shape returns the form of the music in the file.
func (f *File) Shape() Shape {
	switch {
	case f.Score != nil:
		return ShapeScore
	case f.Staff != nil:
		return ShapeStaff
	case f.Music != nil:
		return ShapeMusic
	default:
		return ShapeNone
	}
}

// A Version is a \version statement. The version string is split at each
// period, so "2.18.0" has parts ["2", "18", "0"].
type Version struct {
	Pos
	Parts []string
}

// A Language is a \language statement. Note names are not interpreted
// according to the language.
type Language struct {
	Pos
	Name string
}

// A Member is an item in a score: a *Staff or a *StaffGroup.
type Member interface {
	Position() Pos
	member()
}

// A Score is a set of staves played simultaneously.
type Score struct {
	Pos
	Members []Member
	Layout  bool
}

// A StaffGroup is a nested set of staves, such as a piano staff.
type StaffGroup struct {
	Pos
	// Context is the LilyPond context name, such as "PianoStaff".
	Context string
	Members []Member
}

func (*StaffGroup) member() {}

// A Staff is a \new Staff block.
type Staff struct {
	Pos
	Content *StaffContent
}

func (*Staff) member() {}

// StaffContent is the music in a staff: the settings which come before any
// music, followed by blocks of music.
type StaffContent struct {
	Settings []Setting
	Blocks   []*Block
}

// A Block is a run of music in a staff. A monophonic block has exactly one
// layer. A polyphonic block, written << {...} \\ {...} >>, has one layer per
// voice, possibly none.
type Block struct {
	Pos
	Polyphonic bool
	Layers     []*Layer
}

// A Layer is a sequence of nodes in one voice.
type Layer struct {
	Pos
	Nodes []Node
}

// =============================================================================

// A Pitch is the written pitch of a note.
type Pitch struct {
	// Name is the pitch letter.
	Name string
	// Accid is the list of accidental syllables, such as ["es", "es"]. A
	// spelling which cannot be split into "es" and "is" syllables is kept as
	// a single entry.
	Accid []string
	// Octave is the run of octave marks, such as "''" or ",".
	Octave string
	// Force is '!' for a forced accidental, '?' for a cautionary accidental,
	// or 0.
	Force byte
}

// A Duration is a written duration. Value is empty if the duration is
// omitted.
type Duration struct {
	Value string
	Dots  int
}

// A Note is a single note.
type Note struct {
	Pos
	Pitch
	Duration
	PostEvents []string
}

func (*Note) Kind() Kind { return KindNote }

// A ChordNote is a note inside a chord. It has no duration of its own.
type ChordNote struct {
	Pos
	Pitch
	PostEvents []string
}

// A Chord is a set of notes written <...>.
type Chord struct {
	Pos
	Notes []*ChordNote
	Duration
	PostEvents []string
}

func (*Chord) Kind() Kind { return KindChord }

// A Rest is a rest, written r.
type Rest struct {
	Pos
	Duration
	PostEvents []string
}

func (*Rest) Kind() Kind { return KindRest }

// A MeasureRest is a full measure rest, written R.
type MeasureRest struct {
	Pos
	Duration
	PostEvents []string
}

func (*MeasureRest) Kind() Kind { return KindMeasureRest }

// A Spacer is invisible time, written s.
type Spacer struct {
	Pos
	Duration
	PostEvents []string
}

func (*Spacer) Kind() Kind { return KindSpacer }

// A Barcheck is written |.
type Barcheck struct {
	Pos
}

func (*Barcheck) Kind() Kind { return KindBarcheck }

// =============================================================================

// A Clef is a \clef setting. The name is not validated.
type Clef struct {
	Pos
	Name string
}

func (*Clef) Kind() Kind { return KindClef }
func (*Clef) setting()   {}

// A Key is a \key setting, such as \key fis \minor.
type Key struct {
	Pos
	Letter string
	Accid  []string
	// Mode is "major" or "minor".
	Mode string
}

func (*Key) Kind() Kind { return KindKey }
func (*Key) setting()   {}

// A Time is a \time setting. The fraction is not reduced.
type Time struct {
	Pos
	Count string
	Unit  string
}

func (*Time) Kind() Kind { return KindTime }
func (*Time) setting()   {}

// An InstrName is a \set Staff.instrumentName setting.
type InstrName struct {
	Pos
	Name string
}

func (*InstrName) Kind() Kind { return KindInstrName }
func (*InstrName) setting()   {}

// A StaffProperty is any other \set Staff.<property> setting.
type StaffProperty struct {
	Pos
	Name  string
	Value string
}

func (*StaffProperty) Kind() Kind { return KindStaffProperty }
func (*StaffProperty) setting()   {}
