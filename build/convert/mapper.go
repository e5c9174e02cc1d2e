package convert

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"moria.us/lymei/build/ly"
	"moria.us/lymei/build/mei"
	"moria.us/lymei/build/tables"
)

const (
	supportedMajor = "2"
	supportedMinor = "18"
	staffLines     = 5
)

type mapper struct {
	log     logrus.FieldLogger
	diags   []*Diagnostic
	section *mei.Section
	nstaff  int
}

func newMapper(opts *Options) *mapper {
	var log logrus.FieldLogger
	if opts != nil {
		log = opts.Logger
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &mapper{log: log}
}

func (m *mapper) warnf(pos ly.Pos, format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)
	m.diags = append(m.diags, &Diagnostic{Line: pos.Line, Col: pos.Col, Message: msg})
	m.log.WithFields(logrus.Fields{
		"line": pos.Line,
		"col":  pos.Col,
	}).Warn(msg)
}

func fatal(pos ly.Pos, err error) error {
	return &Error{Line: pos.Line, Col: pos.Col, Err: err}
}

func (m *mapper) doFile(f *ly.File) (*mei.Section, error) {
	var score *ly.Score
	switch f.Shape() {
	case ly.ShapeScore:
		score = f.Score
	case ly.ShapeStaff:
		score = &ly.Score{Pos: f.Staff.Pos, Members: []ly.Member{f.Staff}}
	case ly.ShapeMusic:
		st := &ly.Staff{Content: f.Music}
		if len(f.Music.Settings) != 0 {
			st.Pos = f.Music.Settings[0].Position()
		} else {
			st.Pos = f.Music.Blocks[0].Pos
		}
		score = &ly.Score{Pos: st.Pos, Members: []ly.Member{st}}
	default:
		return nil, &Error{Err: ErrShape}
	}
	if v := f.Version; v != nil {
		if err := m.checkVersion(v); err != nil {
			return nil, err
		}
	} else if f.Shape() == ly.ShapeScore {
		m.warnf(score.Pos, "missing version info")
	}
	grp := new(mei.StaffGrp)
	m.section = &mei.Section{ScoreDef: &mei.ScoreDef{StaffGrp: grp}}
	if err := m.doMembers(grp, score.Members); err != nil {
		return nil, err
	}
	return m.section, nil
}

func (m *mapper) checkVersion(v *ly.Version) error {
	s := strings.Join(v.Parts, ".")
	if v.Parts[0] != supportedMajor {
		return fatal(v.Pos, fmt.Errorf("%w: %q", ErrVersion, s))
	}
	if len(v.Parts) < 2 || v.Parts[1] != supportedMinor {
		m.warnf(v.Pos, "version %q is not %s.%s, conversion may be inaccurate",
			s, supportedMajor, supportedMinor)
	}
	return nil
}

func (m *mapper) doMembers(grp *mei.StaffGrp, ms []ly.Member) error {
	for _, mb := range ms {
		switch mb := mb.(type) {
		case *ly.Staff:
			if err := m.doStaff(grp, mb); err != nil {
				return err
			}
		case *ly.StaffGroup:
			sub := &mei.StaffGrp{Symbol: "bracket"}
			if ly.IsBraced(mb.Context) {
				sub.Symbol = "brace"
			}
			grp.Members = append(grp.Members, sub)
			if err := m.doMembers(sub, mb.Members); err != nil {
				return err
			}
		default:
			panic("bad state")
		}
	}
	return nil
}

func (m *mapper) doStaff(grp *mei.StaffGrp, s *ly.Staff) error {
	m.nstaff++
	sd := &mei.StaffDef{N: m.nstaff, Lines: staffLines}
	grp.Members = append(grp.Members, sd)
	for _, st := range s.Content.Settings {
		if err := m.doSetting(sd, st); err != nil {
			return err
		}
	}
	for _, b := range s.Content.Blocks {
		staff := &mei.Staff{N: sd.N}
		for i, l := range b.Layers {
			layer := &mei.Layer{N: i + 1}
			for _, n := range l.Nodes {
				if e := m.doNode(n); e != nil {
					layer.Nodes = append(layer.Nodes, e)
				}
			}
			staff.Layers = append(staff.Layers, layer)
		}
		m.section.Staffs = append(m.section.Staffs, staff)
	}
	return nil
}

func (m *mapper) doSetting(sd *mei.StaffDef, s ly.Setting) error {
	switch s := s.(type) {
	case *ly.Clef:
		c, ok := tables.LookupClef(s.Name)
		if !ok {
			m.warnf(s.Pos, "unknown clef: %q", s.Name)
			return nil
		}
		sd.ClefShape = c.Shape
		sd.ClefLine = c.Line
	case *ly.Key:
		sig, ok := tables.Key(s.Letter, s.Accid, tables.Mode(s.Mode))
		if !ok {
			return fatal(s.Pos, fmt.Errorf("%w: %s%s \\%s",
				ErrKeySignature, s.Letter, strings.Join(s.Accid, ""), s.Mode))
		}
		sd.KeySig = sig
	case *ly.Time:
		sd.MeterCount = s.Count
		sd.MeterUnit = s.Unit
	case *ly.InstrName:
		sd.Label = s.Name
	default:
		m.warnf(s.Position(), "unknown staff setting: %s", s.Kind())
	}
	return nil
}

// doNode converts a node in a layer. It returns nil for nodes which produce
// no element.
func (m *mapper) doNode(n ly.Node) mei.Element {
	switch n := n.(type) {
	case *ly.Note:
		e := &mei.Note{Timed: timed(n.Duration)}
		m.doPitch(e, n.Pos, &n.Pitch)
		return e
	case *ly.Chord:
		e := &mei.Chord{Timed: timed(n.Duration)}
		for _, cn := range n.Notes {
			ne := new(mei.Note)
			m.doPitch(ne, cn.Pos, &cn.Pitch)
			e.Notes = append(e.Notes, ne)
		}
		return e
	case *ly.Rest:
		return &mei.Rest{Timed: timed(n.Duration)}
	case *ly.Spacer:
		return &mei.Space{Timed: timed(n.Duration)}
	case *ly.Barcheck:
		return nil
	case ly.Setting:
		m.warnf(n.Position(), "%s setting after music is ignored", n.Kind())
		return nil
	default:
		m.warnf(n.Position(), "unknown node kind: %s", n.Kind())
		return nil
	}
}

func timed(d ly.Duration) mei.Timed {
	return mei.Timed{Dur: d.Value, Dots: d.Dots}
}

// displayAccid returns the accidental to display for a note whose sounding
// accidental is ges.
func displayAccid(ges string) string {
	if ges != "" {
		return ges
	}
	return "n"
}

func (m *mapper) doPitch(e *mei.Note, pos ly.Pos, p *ly.Pitch) {
	e.PName = p.Name
	oct, ok := tables.Octave(p.Octave)
	if !ok {
		m.warnf(pos, "unknown octave marks %q, using octave %s", p.Octave, oct)
	}
	e.Oct = oct
	if accid, ok := tables.Accidental(p.Accid); ok {
		e.AccidGes = accid
	} else {
		m.warnf(pos, "unknown accidental: %q", strings.Join(p.Accid, ""))
	}
	switch p.Force {
	case '!':
		e.Accid = displayAccid(e.AccidGes)
	case '?':
		e.Cautionary = &mei.Accid{Accid: displayAccid(e.AccidGes), Func: "caution"}
	}
}
