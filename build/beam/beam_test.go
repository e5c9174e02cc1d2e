package beam

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moria.us/lymei/build/mei"
)

// makeLayer creates a layer from a compact description: "n8" is an eighth
// note, "c4." a dotted quarter chord, "r8" a rest, "s4" a space, and "n" a
// note with no duration.
func makeLayer(t *testing.T, desc string) *mei.Layer {
	t.Helper()
	l := &mei.Layer{N: 1}
	for _, f := range strings.Fields(desc) {
		dots := strings.Count(f, ".")
		tm := mei.Timed{Dur: strings.TrimRight(f[1:], "."), Dots: dots}
		var e mei.Element
		switch f[0] {
		case 'n':
			e = &mei.Note{Timed: tm, PName: "c", Oct: "4"}
		case 'c':
			e = &mei.Chord{Timed: tm, Notes: []*mei.Note{{PName: "c", Oct: "4"}, {PName: "e", Oct: "4"}}}
		case 'r':
			e = &mei.Rest{Timed: tm}
		case 's':
			e = &mei.Space{Timed: tm}
		default:
			t.Fatalf("bad element: %q", f)
		}
		l.Nodes = append(l.Nodes, e)
	}
	return l
}

// beams returns the number of members in each beam of a layer, checking that
// every beam follows its last member.
func beams(t *testing.T, l *mei.Layer) []int {
	t.Helper()
	var r []int
	for i, e := range l.Nodes {
		b, ok := e.(*mei.BeamSpan)
		if !ok {
			continue
		}
		require.NotZero(t, i)
		prev, ok := l.Nodes[i-1].(mei.Music)
		require.True(t, ok)
		assert.Equal(t, b.EndID, prev.XMLID())
		assert.Equal(t, b.Plist[0], b.StartID)
		assert.Equal(t, b.Plist[len(b.Plist)-1], b.EndID)
		r = append(r, len(b.Plist))
	}
	return r
}

func TestAutobeam(t *testing.T) {
	type testcase struct {
		meter string
		desc  string
		beams []int
	}
	cases := []testcase{
		// 4/4
		{"", "n8 n8 n8 n8", []int{4}},
		{"", "n8 n8 n8 n8 n8 n8 n8 n8", []int{4, 4}},
		{"", "n8 n8 n16 n16 n16 n16", []int{2, 4}},
		{"", "n8 n8 n8 n16 n16", []int{2, 3}},
		{"", "n16 n16 n16 n16 n8 n8", []int{4, 2}},
		{"", "n8 n8 n8 n16 n16 n8 n8 n8 n8", []int{2, 3, 4}},
		{"", "n8 n8 n8 n16 n16 n8 n8", []int{2, 3, 2}},
		{"", "n16 n16 n16 n16 n16 n16 n16 n16", []int{4, 4}},
		{"", "n4 n8 r8 n4 r4", nil},
		{"", "n4 n8 n4 n8 n4", nil},
		{"", "n8 n8 n4 n8 n8 n4", []int{2, 2}},
		{"", "n8. n16 n8. n16", []int{2, 2}},
		{"", "n8 n16 n16 n8 n8", []int{3, 2}},
		{"", "c8 c8 n8 n8", []int{4}},
		{"", "n8 n8 r8 n8 n8 n8", []int{2, 2}},
		{"", "s8 n8 n8 n8 n8 n8", []int{3, 2}},
		{"", "n n n8 n8", []int{2}},
		{"", "n2 n1", nil},
		// 3/4
		{"3/4", "n8 n8 n8 n8 n8 n8", []int{2, 2, 2}},
		// 6/8
		{"6/8", "n8 n8 n8 n8 n8 n8", []int{3, 3}},
		{"6/8", "n4 n8 n8 n8 n8", []int{3}},
		// Syncopation: a beam continues when the beat is crossed mid-note.
		{"2/4", "n16 n8 n8 n16 n4", []int{4}},
	}
	for _, c := range cases {
		sd := &mei.StaffDef{N: 1}
		if c.meter != "" {
			parts := strings.Split(c.meter, "/")
			sd.MeterCount, sd.MeterUnit = parts[0], parts[1]
		}
		l := makeLayer(t, c.desc)
		require.NoError(t, Autobeam(l, sd), "%s %q", c.meter, c.desc)
		assert.Equal(t, c.beams, beams(t, l), "%s %q", c.meter, c.desc)
	}
}

func TestAutobeamIDs(t *testing.T) {
	l := makeLayer(t, "n8 n8 n4")
	l.Nodes[0].(*mei.Note).ID = "first"
	require.NoError(t, Autobeam(l, nil))
	require.Len(t, l.Nodes, 4)
	b, ok := l.Nodes[2].(*mei.BeamSpan)
	require.True(t, ok)
	second := l.Nodes[1].(*mei.Note).ID
	assert.Equal(t, []string{"first", second}, b.Plist)
	assert.Regexp(t, `^m-[0-9a-f]{16}$`, second)
	assert.Empty(t, l.Nodes[3].(*mei.Note).ID)

	// Identifiers are stable and depend on the path.
	l2 := makeLayer(t, "n8 n8 n4")
	require.NoError(t, AutobeamPath(l2, nil, "0/1"))
	assert.Equal(t, second, l2.Nodes[1].(*mei.Note).ID)
	l3 := makeLayer(t, "n8 n8 n4")
	require.NoError(t, AutobeamPath(l3, nil, "2/1"))
	assert.NotEqual(t, second, l3.Nodes[1].(*mei.Note).ID)
}

func TestAutobeamInvalid(t *testing.T) {
	l := makeLayer(t, "n8 n8")
	l.Nodes[0].(*mei.Note).Dur = "3"
	assert.Error(t, Autobeam(l, nil))
	assert.Error(t, Autobeam(makeLayer(t, "n8"), &mei.StaffDef{MeterCount: "x", MeterUnit: "4"}))
}

func TestMod(t *testing.T) {
	type testcase struct {
		x, m, r string
	}
	cases := []testcase{
		{"0", "1/4", "0"},
		{"1/4", "1/4", "0"},
		{"3/8", "1/4", "1/8"},
		{"7/4", "1", "3/4"},
	}
	for _, c := range cases {
		x, _ := new(big.Rat).SetString(c.x)
		m, _ := new(big.Rat).SetString(c.m)
		assert.Equal(t, c.r, mod(x, m).RatString(), "%s mod %s", c.x, c.m)
	}
}
