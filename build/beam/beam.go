// Package beam groups short notes and chords under beams according to the
// beats of the time signature.
package beam

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"golang.org/x/crypto/blake2b"

	"moria.us/lymei/build/duration"
	"moria.us/lymei/build/mei"
)

// idSize is the size, in bytes, of the hash in a generated identifier.
const idSize = 8

var halfNote = big.NewRat(1, 2)

// makeID returns an identifier for the element at the given index of the
// layer at path. The same path and index always give the same identifier.
func makeID(path string, index int) string {
	h, err := blake2b.New(idSize, nil)
	if err != nil {
		panic("blake2b.New: " + err.Error())
	}
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(index)))
	return "m-" + hex.EncodeToString(h.Sum(nil))
}

// mod returns x modulo m, for non-negative x and positive m.
func mod(x, m *big.Rat) *big.Rat {
	q := new(big.Rat).Quo(x, m)
	n := new(big.Int).Quo(q.Num(), q.Denom())
	r := new(big.Rat).SetInt(n)
	r.Mul(r, m)
	return r.Sub(x, r)
}

type scan struct {
	beat    *big.Rat
	measure *big.Rat
	common  bool

	phase  *big.Rat
	offset *big.Rat
	open   []int
	held   int
	groups [][]int
	tokens map[int]string
}

func (s *scan) flush() {
	if len(s.open) >= 2 {
		s.groups = append(s.groups, s.open)
	}
	s.open = nil
	s.held = 0
}

// add appends element i to the open group. A group of eighths held across a
// beat is split at that beat once a shorter value joins it.
func (s *scan) add(i int, token string) {
	if s.held > 0 && token != "8" {
		rest := s.open[s.held:]
		s.open = s.open[:s.held]
		s.flush()
		s.open = rest
	}
	s.open = append(s.open, i)
	s.tokens[i] = token
}

// holdsAtBeat returns true if the open group should continue across the beat
// boundary just reached. In 4/4, runs of eighths are beamed by half measure.
func (s *scan) holdsAtBeat() bool {
	if !s.common || len(s.open) == 0 {
		return false
	}
	for _, i := range s.open {
		if s.tokens[i] != "8" {
			return false
		}
	}
	return mod(s.offset, halfNote).Sign() != 0
}

// Autobeam adds beams to a layer. Identifiers for beamed elements are derived
// from the staff and layer numbers.
func Autobeam(layer *mei.Layer, sd *mei.StaffDef) error {
	var n int
	if sd != nil {
		n = sd.N
	}
	return AutobeamPath(layer, sd, strconv.Itoa(n)+"/"+strconv.Itoa(layer.N))
}

// AutobeamPath adds beams to a layer, whose staff is described by sd. Each
// beamed note or chord without an identifier is given one derived from path
// and its position in the layer, so path should be unique within the
// document.
//
// Notes and chords shorter than a quarter note are collected into groups. A
// group ends at a rest, at a quarter note or longer, or when the music
// reaches a beat boundary. In 4/4, a group of eighths continues across the
// first and third beats, but is split at that beat if a shorter value joins
// it later. Groups with fewer than two members are dropped.
// Each remaining group is recorded as a BeamSpan placed after its last
// member.
func AutobeamPath(layer *mei.Layer, sd *mei.StaffDef, path string) error {
	beat, err := duration.Beat(sd)
	if err != nil {
		return err
	}
	measure, err := duration.Measure(sd)
	if err != nil {
		return err
	}
	count, unit, err := duration.TimeSignature(sd)
	if err != nil {
		return err
	}
	s := scan{
		beat:    beat,
		measure: measure,
		common:  count == 4 && unit == 4,
		phase:   new(big.Rat),
		offset:  new(big.Rat),
		tokens:  make(map[int]string),
	}
	for i, e := range layer.Nodes {
		mu, ok := e.(mei.Music)
		if !ok {
			continue
		}
		token, dots := mu.Timing()
		if token == "" {
			continue
		}
		d, err := duration.Of(token, dots)
		if err != nil {
			return err
		}
		switch e.(type) {
		case *mei.Note, *mei.Chord:
			if duration.ShorterThanQuarter(token) {
				s.add(i, token)
			} else {
				s.flush()
			}
		case *mei.Rest:
			s.flush()
		}
		s.offset = mod(s.offset.Add(s.offset, d), s.measure)
		s.phase = mod(s.phase.Add(s.phase, d), s.beat)
		if s.phase.Sign() == 0 {
			if s.holdsAtBeat() {
				s.held = len(s.open)
			} else {
				s.flush()
			}
		}
	}
	s.flush()
	if len(s.groups) == 0 {
		return nil
	}

	spans := make(map[int]*mei.BeamSpan, len(s.groups))
	for _, g := range s.groups {
		ids := make([]string, len(g))
		for j, i := range g {
			mu := layer.Nodes[i].(mei.Music)
			if mu.XMLID() == "" {
				mu.SetXMLID(makeID(path, i))
			}
			ids[j] = mu.XMLID()
		}
		spans[g[len(g)-1]] = &mei.BeamSpan{
			Plist:   ids,
			StartID: ids[0],
			EndID:   ids[len(ids)-1],
		}
	}
	nodes := make([]mei.Element, 0, len(layer.Nodes)+len(spans))
	for i, e := range layer.Nodes {
		nodes = append(nodes, e)
		if b := spans[i]; b != nil {
			nodes = append(nodes, b)
		}
	}
	layer.Nodes = nodes
	return nil
}
