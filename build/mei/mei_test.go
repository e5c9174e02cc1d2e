package mei

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func testSection() *Section {
	return &Section{
		ScoreDef: &ScoreDef{StaffGrp: &StaffGrp{Members: []Element{
			&StaffDef{N: 1, Lines: 5, MeterCount: "3", MeterUnit: "4"},
			&StaffGrp{Symbol: "brace", Members: []Element{
				&StaffDef{N: 2, Lines: 5, KeySig: "1f"},
				&StaffDef{N: 3, Lines: 5, Label: "Bass & Co"},
			}},
		}}},
		Staffs: []*Staff{{N: 1, Layers: []*Layer{{N: 1, Nodes: []Element{
			&Note{Timed: Timed{Dur: "256", Dots: 2}, PName: "b", Oct: "2", AccidGes: "f", Accid: "f"},
			&Rest{Timed: Timed{Dur: "4"}},
		}}}}},
	}
}

func TestStaffDefs(t *testing.T) {
	s := testSection()
	ds := s.ScoreDef.StaffGrp.StaffDefs()
	require.Len(t, ds, 3)
	for i, d := range ds {
		assert.Equal(t, i+1, d.N)
	}
	assert.Equal(t, "1f", s.StaffDef(2).KeySig)
	assert.Nil(t, s.StaffDef(4))
}

func TestAttrs(t *testing.T) {
	n := &Note{Timed: Timed{Dur: "256", Dots: 2}, PName: "b", Oct: "2", AccidGes: "f", Accid: "f"}
	assert.Equal(t, []Attr{
		{"dur", "256"},
		{"dots", "2"},
		{"pname", "b"},
		{"oct", "2"},
		{"accid.ges", "f"},
		{"accid", "f"},
	}, n.Attrs())

	b := &BeamSpan{Plist: []string{"a", "b", "c"}, StartID: "a", EndID: "c"}
	assert.Equal(t, []Attr{
		{"plist", "#a #b #c"},
		{"startid", "#a"},
		{"endid", "#c"},
	}, b.Attrs())

	c := &Note{PName: "c", Oct: "4", Cautionary: &Accid{Accid: "n", Func: "caution"}}
	require.Len(t, c.Children(), 1)
	assert.Equal(t, "accid", c.Children()[0].Tag())
}

func TestMarshalXML(t *testing.T) {
	data, err := MarshalXML(testSection(), "")
	require.NoError(t, err)
	expect := strings.Join([]string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<section xmlns="http://www.music-encoding.org/ns/mei">`,
		`  <scoreDef>`,
		`    <staffGrp>`,
		`      <staffDef n="1" lines="5" meter.count="3" meter.unit="4"/>`,
		`      <staffGrp symbol="brace">`,
		`        <staffDef n="2" lines="5" key.sig="1f"/>`,
		`        <staffDef n="3" lines="5" label="Bass &amp; Co"/>`,
		`      </staffGrp>`,
		`    </staffGrp>`,
		`  </scoreDef>`,
		`  <staff n="1">`,
		`    <layer n="1">`,
		`      <note dur="256" dots="2" pname="b" oct="2" accid.ges="f" accid="f"/>`,
		`      <rest dur="4"/>`,
		`    </layer>`,
		`  </staff>`,
		`</section>`,
		``,
	}, "\n")
	assert.Equal(t, expect, string(data))
}

func TestMarshalXMLCharset(t *testing.T) {
	s := &StaffDef{N: 1, Label: "Flûte 𝄞"}
	data, err := MarshalXML(s, "ISO-8859-1")
	require.NoError(t, err)
	assert.Contains(t, string(data), `encoding="ISO-8859-1"`)
	assert.Contains(t, string(data), "label=\"Fl\xfbte &#119070;\"")

	_, err = MarshalXML(s, "koi8-q")
	assert.Error(t, err)
}

func TestXMLWriterErrors(t *testing.T) {
	type testcase struct {
		name string
		fn   func(w *XMLWriter)
	}
	cases := []testcase{
		{"bad tag", func(w *XMLWriter) { w.OpenTag("1note"); w.CloseTag() }},
		{"bad attr", func(w *XMLWriter) { w.OpenTag("note"); w.Attr("a b", "x"); w.CloseTag() }},
		{"control char", func(w *XMLWriter) { w.OpenTag("note"); w.Attr("label", "\x01"); w.CloseTag() }},
		{"attr after child", func(w *XMLWriter) {
			w.OpenTag("chord")
			w.OpenTag("note")
			w.CloseTag()
			w.Attr("dur", "4")
			w.CloseTag()
		}},
		{"unclosed", func(w *XMLWriter) { w.OpenTag("note") }},
		{"extra close", func(w *XMLWriter) { w.OpenTag("note"); w.CloseTag(); w.CloseTag() }},
	}
	for _, c := range cases {
		var w XMLWriter
		c.fn(&w)
		if _, err := w.Finish(); err == nil {
			t.Errorf("%s: ok (expect err)", c.name)
		}
	}
}

func TestStruct(t *testing.T) {
	s := ToStruct(testSection())
	assert.Equal(t, "section", s.Fields["tag"].GetStringValue())
	children := s.Fields["children"].GetListValue().GetValues()
	require.Len(t, children, 2)
	staff := children[1].GetStructValue()
	assert.Equal(t, "staff", staff.Fields["tag"].GetStringValue())
	assert.Equal(t, "1", staff.Fields["attrs"].GetStructValue().Fields["n"].GetStringValue())

	data, err := MarshalBinary(testSection())
	require.NoError(t, err)
	var decoded structpb.Struct
	require.NoError(t, proto.Unmarshal(data, &decoded))
	assert.True(t, proto.Equal(s, &decoded))

	js, err := MarshalJSON(&Rest{Timed: Timed{Dur: "4"}})
	require.NoError(t, err)
	var rest structpb.Struct
	require.NoError(t, protojson.Unmarshal(js, &rest))
	assert.Equal(t, "rest", rest.Fields["tag"].GetStringValue())
}
