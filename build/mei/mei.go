// Package mei defines the Lychee-MEI document tree produced by the converter,
// along with its serializations.
package mei

import (
	"strconv"
	"strings"
)

// Namespace is the MEI XML namespace.
const Namespace = "http://www.music-encoding.org/ns/mei"

// An Attr is a single element attribute.
type Attr struct {
	Name  string
	Value string
}

// An Element is a node in the document tree. Elements list their attributes
// and children in document order.
type Element interface {
	Tag() string
	Attrs() []Attr
	Children() []Element
}

type attrList []Attr

func (a *attrList) add(name, value string) {
	if value != "" {
		*a = append(*a, Attr{name, value})
	}
}

func (a *attrList) addInt(name string, value int) {
	if value != 0 {
		*a = append(*a, Attr{name, strconv.Itoa(value)})
	}
}

// =============================================================================

// A Section is the root of a converted document.
type Section struct {
	ScoreDef *ScoreDef
	Staffs   []*Staff
}

func (*Section) Tag() string   { return "section" }
func (*Section) Attrs() []Attr { return nil }
func (s *Section) Children() []Element {
	es := make([]Element, 0, len(s.Staffs)+1)
	if s.ScoreDef != nil {
		es = append(es, s.ScoreDef)
	}
	for _, st := range s.Staffs {
		es = append(es, st)
	}
	return es
}

// StaffDef returns the staff definition numbered n, or nil.
func (s *Section) StaffDef(n int) *StaffDef {
	if s.ScoreDef == nil || s.ScoreDef.StaffGrp == nil {
		return nil
	}
	for _, d := range s.ScoreDef.StaffGrp.StaffDefs() {
		if d.N == n {
			return d
		}
	}
	return nil
}

// A ScoreDef holds the staff definitions for a section.
type ScoreDef struct {
	StaffGrp *StaffGrp
}

func (*ScoreDef) Tag() string   { return "scoreDef" }
func (*ScoreDef) Attrs() []Attr { return nil }
func (d *ScoreDef) Children() []Element {
	if d.StaffGrp == nil {
		return nil
	}
	return []Element{d.StaffGrp}
}

// A StaffGrp is an ordered group of staff definitions. Members are either
// *StaffDef or nested *StaffGrp.
type StaffGrp struct {
	Symbol  string
	Members []Element
}

func (*StaffGrp) Tag() string { return "staffGrp" }

func (g *StaffGrp) Attrs() []Attr {
	var a attrList
	a.add("symbol", g.Symbol)
	return a
}

func (g *StaffGrp) Children() []Element { return g.Members }

// StaffDefs returns every staff definition in the group, depth first.
func (g *StaffGrp) StaffDefs() []*StaffDef {
	var ds []*StaffDef
	for _, m := range g.Members {
		switch m := m.(type) {
		case *StaffDef:
			ds = append(ds, m)
		case *StaffGrp:
			ds = append(ds, m.StaffDefs()...)
		default:
			panic("bad staffGrp member")
		}
	}
	return ds
}

// A StaffDef describes one logical staff: its clef, meter, key, and label.
// Empty fields are omitted from the serialized element.
type StaffDef struct {
	N          int
	Lines      int
	ClefShape  string
	ClefLine   string
	MeterCount string
	MeterUnit  string
	KeySig     string
	Label      string
}

func (*StaffDef) Tag() string { return "staffDef" }

func (d *StaffDef) Attrs() []Attr {
	var a attrList
	a.addInt("n", d.N)
	a.addInt("lines", d.Lines)
	a.add("clef.shape", d.ClefShape)
	a.add("clef.line", d.ClefLine)
	a.add("meter.count", d.MeterCount)
	a.add("meter.unit", d.MeterUnit)
	a.add("key.sig", d.KeySig)
	a.add("label", d.Label)
	return a
}

func (*StaffDef) Children() []Element { return nil }

// A Staff holds the music for one section of the staff numbered N.
type Staff struct {
	N      int
	Layers []*Layer
}

func (*Staff) Tag() string { return "staff" }

func (s *Staff) Attrs() []Attr {
	return []Attr{{"n", strconv.Itoa(s.N)}}
}

func (s *Staff) Children() []Element {
	es := make([]Element, len(s.Layers))
	for i, l := range s.Layers {
		es[i] = l
	}
	return es
}

// A Layer is one voice within a staff.
type Layer struct {
	N     int
	Nodes []Element
}

func (*Layer) Tag() string { return "layer" }

func (l *Layer) Attrs() []Attr {
	return []Attr{{"n", strconv.Itoa(l.N)}}
}

func (l *Layer) Children() []Element { return l.Nodes }

// =============================================================================

// Timed is the common part of every music node which takes up time.
type Timed struct {
	ID   string
	Dur  string
	Dots int
}

// Timing returns the duration token and dot count.
func (t *Timed) Timing() (dur string, dots int) {
	return t.Dur, t.Dots
}

// XMLID returns the element's identifier, if any.
func (t *Timed) XMLID() string { return t.ID }

// SetXMLID sets the element's identifier.
func (t *Timed) SetXMLID(id string) { t.ID = id }

func (t *Timed) attrs(a *attrList) {
	a.add("xml:id", t.ID)
	a.add("dur", t.Dur)
	a.addInt("dots", t.Dots)
}

// A Music element is a node in a layer which takes up time.
type Music interface {
	Element
	Timing() (dur string, dots int)
	XMLID() string
	SetXMLID(id string)
}

// A Note is a single pitch. Notes inside a chord have no duration.
type Note struct {
	Timed
	PName      string
	Oct        string
	AccidGes   string
	Accid      string
	Cautionary *Accid
}

func (*Note) Tag() string { return "note" }

func (n *Note) Attrs() []Attr {
	var a attrList
	n.Timed.attrs(&a)
	a.add("pname", n.PName)
	a.add("oct", n.Oct)
	a.add("accid.ges", n.AccidGes)
	a.add("accid", n.Accid)
	return a
}

func (n *Note) Children() []Element {
	if n.Cautionary == nil {
		return nil
	}
	return []Element{n.Cautionary}
}

// An Accid is a displayed accidental, such as a cautionary accidental.
type Accid struct {
	Accid string
	Func  string
}

func (*Accid) Tag() string { return "accid" }

func (c *Accid) Attrs() []Attr {
	var a attrList
	a.add("accid", c.Accid)
	a.add("func", c.Func)
	return a
}

func (*Accid) Children() []Element { return nil }

// A Chord is a set of notes sounding together.
type Chord struct {
	Timed
	Notes []*Note
}

func (*Chord) Tag() string { return "chord" }

func (c *Chord) Attrs() []Attr {
	var a attrList
	c.Timed.attrs(&a)
	return a
}

func (c *Chord) Children() []Element {
	es := make([]Element, len(c.Notes))
	for i, n := range c.Notes {
		es[i] = n
	}
	return es
}

// A Rest is a silence.
type Rest struct {
	Timed
}

func (*Rest) Tag() string { return "rest" }

func (r *Rest) Attrs() []Attr {
	var a attrList
	r.Timed.attrs(&a)
	return a
}

func (*Rest) Children() []Element { return nil }

// A Space is invisible time.
type Space struct {
	Timed
}

func (*Space) Tag() string { return "space" }

func (s *Space) Attrs() []Attr {
	var a attrList
	s.Timed.attrs(&a)
	return a
}

func (*Space) Children() []Element { return nil }

// A BeamSpan groups a run of notes and chords under one beam. It refers to
// its members by identifier and does not own them.
type BeamSpan struct {
	Plist   []string
	StartID string
	EndID   string
}

func (*BeamSpan) Tag() string { return "beamSpan" }

func (b *BeamSpan) Attrs() []Attr {
	refs := make([]string, len(b.Plist))
	for i, id := range b.Plist {
		refs[i] = "#" + id
	}
	return []Attr{
		{"plist", strings.Join(refs, " ")},
		{"startid", "#" + b.StartID},
		{"endid", "#" + b.EndID},
	}
}

func (*BeamSpan) Children() []Element { return nil }

// Walk calls f for e and each of its descendants in document order.
func Walk(e Element, f func(Element)) {
	f(e)
	for _, c := range e.Children() {
		Walk(c, f)
	}
}
