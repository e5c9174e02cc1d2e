package tables

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccidental(t *testing.T) {
	type testcase struct {
		in    []string
		out   string
		valid bool
	}
	cases := []testcase{
		{nil, "", true},
		{[]string{"es"}, "f", true},
		{[]string{"es", "es"}, "ff", true},
		{[]string{"is"}, "s", true},
		{[]string{"is", "is"}, "ss", true},
		{[]string{"eis"}, "", false},
		{[]string{"es", "is"}, "", false},
		{[]string{"is", "is", "is"}, "", false},
	}
	for _, c := range cases {
		out, ok := Accidental(c.in)
		if ok != c.valid || out != c.out {
			t.Errorf("Accidental(%q) = %q, %t; expect %q, %t", c.in, out, ok, c.out, c.valid)
		}
	}
}

func TestOctave(t *testing.T) {
	marks := []string{",,", ",", "", "'", "''", "'''", "''''", "'''''"}
	for i, m := range marks {
		oct, ok := Octave(m)
		assert.True(t, ok, "marks %q", m)
		assert.Equal(t, string(rune('1'+i)), oct, "marks %q", m)
	}
	for _, m := range []string{",,,", "''''''", ",'"} {
		oct, ok := Octave(m)
		assert.False(t, ok, "marks %q", m)
		assert.Equal(t, DefaultOctave, oct)
	}
}

func TestClef(t *testing.T) {
	c, ok := LookupClef("bass")
	assert.True(t, ok)
	assert.Equal(t, Clef{"F", "4"}, c)
	c, ok = LookupClef("treble")
	assert.True(t, ok)
	assert.Equal(t, Clef{"G", "2"}, c)
	_, ok = LookupClef("french")
	assert.False(t, ok)
}

var keySig = regexp.MustCompile(`^(0|[1-7][fs])$`)

func TestKeyTables(t *testing.T) {
	for mode, table := range keys {
		assert.Len(t, table, 15, "mode %s", mode)
		seen := make(map[string]bool)
		for tonic, sig := range table {
			assert.Regexp(t, keySig, sig, "%s %s", tonic, mode)
			assert.False(t, seen[sig], "duplicate signature %s in %s", sig, mode)
			seen[sig] = true
		}
	}
}

func TestKey(t *testing.T) {
	type testcase struct {
		letter string
		accid  []string
		mode   Mode
		sig    string
		ok     bool
	}
	cases := []testcase{
		{"f", nil, Major, "1f", true},
		{"f", []string{"is"}, Minor, "3s", true},
		{"c", nil, Major, "0", true},
		{"a", nil, Minor, "0", true},
		{"c", []string{"es"}, Major, "7f", true},
		{"a", []string{"is"}, Minor, "7s", true},
		{"g", []string{"is"}, Major, "", false},
		{"c", nil, Mode("dorian"), "", false},
	}
	for _, c := range cases {
		sig, ok := Key(c.letter, c.accid, c.mode)
		if sig != c.sig || ok != c.ok {
			t.Errorf("Key(%q, %q, %s) = %q, %t; expect %q, %t", c.letter, c.accid, c.mode, sig, ok, c.sig, c.ok)
		}
	}
}

func TestDurationIndex(t *testing.T) {
	assert.Equal(t, 0, DurationIndex("long"))
	assert.Equal(t, 4, DurationIndex("4"))
	assert.Equal(t, 13, DurationIndex("2048"))
	assert.Equal(t, -1, DurationIndex("3"))
}
