// Package tables contains the fixed lookup tables used to translate LilyPond
// spellings into Lychee-MEI attribute values.
package tables

import "strings"

// A Mode is the mode of a key signature.
type Mode string

const (
	Major Mode = "major"
	Minor Mode = "minor"
)

// DefaultOctave is the MEI octave of a note with no octave marks.
const DefaultOctave = "3"

var accidentals = map[string]string{
	"es":   "f",
	"eses": "ff",
	"is":   "s",
	"isis": "ss",
}

var octaves = map[string]string{
	",,":    "1",
	",":     "2",
	"":      DefaultOctave,
	"'":     "4",
	"''":    "5",
	"'''":   "6",
	"''''":  "7",
	"'''''": "8",
}

// A Clef is a clef shape and the staff line it sits on.
type Clef struct {
	Shape string
	Line  string
}

var clefs = map[string]Clef{
	"bass":   {"F", "4"},
	"tenor":  {"C", "4"},
	"alto":   {"C", "3"},
	"treble": {"G", "2"},
}

var keys = map[Mode]map[string]string{
	Major: {
		"ces": "7f",
		"ges": "6f",
		"des": "5f",
		"aes": "4f",
		"ees": "3f",
		"bes": "2f",
		"f":   "1f",
		"c":   "0",
		"g":   "1s",
		"d":   "2s",
		"a":   "3s",
		"e":   "4s",
		"b":   "5s",
		"fis": "6s",
		"cis": "7s",
	},
	Minor: {
		"aes": "7f",
		"ees": "6f",
		"bes": "5f",
		"f":   "4f",
		"c":   "3f",
		"g":   "2f",
		"d":   "1f",
		"a":   "0",
		"e":   "1s",
		"b":   "2s",
		"fis": "3s",
		"cis": "4s",
		"gis": "5s",
		"dis": "6s",
		"ais": "7s",
	},
}

// Accidental returns the MEI accidental for a list of LilyPond accidental
// syllables, such as ["es", "es"]. An empty list has no accidental and
// returns ok == true with an empty value.
func Accidental(syllables []string) (accid string, ok bool) {
	if len(syllables) == 0 {
		return "", true
	}
	accid, ok = accidentals[strings.Join(syllables, "")]
	return
}

// Octave returns the MEI octave for a run of LilyPond octave marks.
// Unrecognized marks return DefaultOctave and ok == false.
func Octave(marks string) (oct string, ok bool) {
	if oct, ok := octaves[marks]; ok {
		return oct, true
	}
	return DefaultOctave, false
}

// LookupClef returns the clef with the given LilyPond name.
func LookupClef(name string) (Clef, bool) {
	c, ok := clefs[name]
	return c, ok
}

// Key returns the MEI key signature for a tonic spelled as a pitch letter
// plus accidental syllables, in the given mode.
func Key(letter string, syllables []string, mode Mode) (string, bool) {
	t, ok := keys[mode]
	if !ok {
		return "", false
	}
	sig, ok := t[letter+strings.Join(syllables, "")]
	return sig, ok
}

// Durations is the ordered list of MEI duration tokens, longest first.
var Durations = [...]string{
	"long", "breve", "1", "2", "4", "8", "16", "32", "64", "128", "256", "512", "1024", "2048",
}

// DurationIndex returns the position of a duration token in Durations, or
// -1 if the token is unknown.
func DurationIndex(token string) int {
	for i, d := range Durations {
		if d == token {
			return i
		}
	}
	return -1
}
