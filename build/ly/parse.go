package ly

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// An Error is a syntax error in a LilyPond document.
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

// durationNumbers lists the numeric durations in the order they are tried.
// Longer spellings come first so that "16" is not read as "1".
var durationNumbers = [...]string{
	"2048", "1024", "512", "256", "128", "64", "32", "16", "8", "4", "2", "1",
}

// groupContexts maps the contexts which may group staves in a score to
// whether they are braced (as opposed to bracketed).
var groupContexts = map[string]bool{
	"StaffGroup": false,
	"ChoirStaff": false,
	"PianoStaff": true,
	"GrandStaff": true,
}

// IsBraced returns true if a staff group context is drawn with a brace.
func IsBraced(context string) bool {
	return groupContexts[context]
}

func isLower(c byte) bool {
	return 'a' <= c && c <= 'z'
}

func isLetter(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// isPitchLetter returns true for the letters which can be a pitch name on
// their own. The letters q, r, and s are excluded; r and s are rests and
// spacers.
func isPitchLetter(c byte) bool {
	return 'a' <= c && c <= 'p' || 't' <= c && c <= 'z'
}

// =============================================================================

type scanner struct {
	data      []byte
	off       int
	line      int
	lineStart int
}

func (s *scanner) pos() Pos {
	return Pos{s.line, s.off - s.lineStart + 1}
}

func (s *scanner) eof() bool {
	return s.off >= len(s.data)
}

func (s *scanner) peek() byte {
	if s.off >= len(s.data) {
		return 0
	}
	return s.data[s.off]
}

func (s *scanner) hasPrefix(p string) bool {
	return bytes.HasPrefix(s.data[s.off:], []byte(p))
}

func (s *scanner) advance(n int) {
	for i := 0; i < n; i++ {
		if s.data[s.off] == '\n' {
			s.line++
			s.lineStart = s.off + 1
		}
		s.off++
	}
}

// skipSpace skips whitespace, %{ block comments %}, and % line comments.
func (s *scanner) skipSpace() error {
	for !s.eof() {
		switch c := s.peek(); {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			s.advance(1)
		case s.hasPrefix("%{"):
			start := s.pos()
			i := bytes.Index(s.data[s.off+2:], []byte("%}"))
			if i == -1 {
				return &Error{start.Line, start.Col, errors.New("unterminated block comment")}
			}
			s.advance(i + 4)
		case c == '%':
			for !s.eof() && s.peek() != '\n' {
				s.advance(1)
			}
		default:
			return nil
		}
	}
	return nil
}

// span returns the run of bytes at the current position matching f, without
// consuming it.
func (s *scanner) span(f func(byte) bool) string {
	i := s.off
	for i < len(s.data) && f(s.data[i]) {
		i++
	}
	return string(s.data[s.off:i])
}

// peekCommand returns the name of the backslash command at the current
// position, such as "clef" for \clef, or "" if there is none.
func (s *scanner) peekCommand() string {
	if s.peek() != '\\' {
		return ""
	}
	i := s.off + 1
	for i < len(s.data) && isLetter(s.data[i]) {
		i++
	}
	return string(s.data[s.off+1 : i])
}

// =============================================================================

type parser struct {
	scanner
}

func (p *parser) errorf(pos Pos, format string, a ...interface{}) error {
	return &Error{Line: pos.Line, Col: pos.Col, Err: fmt.Errorf(format, a...)}
}

// unexpected returns an error for the text at the current position.
func (p *parser) unexpected(what string) error {
	pos := p.pos()
	if p.eof() {
		return p.errorf(pos, "unexpected end of file, expected %s", what)
	}
	if cmd := p.peekCommand(); cmd != "" {
		return p.errorf(pos, "unexpected \\%s, expected %s", cmd, what)
	}
	r, _ := utf8.DecodeRune(p.data[p.off:])
	return p.errorf(pos, "unexpected %q, expected %s", r, what)
}

// expect skips whitespace and consumes the given token.
func (p *parser) expect(tok string) error {
	if err := p.skipSpace(); err != nil {
		return err
	}
	if !p.hasPrefix(tok) {
		return p.unexpected(strconv.Quote(tok))
	}
	p.advance(len(tok))
	return nil
}

// expectCommand skips whitespace and consumes the given backslash command.
func (p *parser) expectCommand(name string) error {
	if err := p.skipSpace(); err != nil {
		return err
	}
	if p.peekCommand() != name {
		return p.unexpected("\\" + name)
	}
	p.advance(len(name) + 1)
	return nil
}

func (p *parser) parseString() (string, error) {
	if p.peek() != '"' {
		return "", p.unexpected("string")
	}
	start := p.pos()
	p.advance(1)
	var b strings.Builder
	for {
		if p.eof() || p.peek() == '\n' {
			return "", p.errorf(start, "unterminated string")
		}
		c := p.peek()
		if c == '"' {
			p.advance(1)
			return b.String(), nil
		}
		if c == '\\' && p.off+1 < len(p.data) {
			if e := p.data[p.off+1]; e == '"' || e == '\\' {
				b.WriteByte(e)
				p.advance(2)
				continue
			}
		}
		b.WriteByte(c)
		p.advance(1)
	}
}

// =============================================================================

func (p *parser) parseFile() (*File, error) {
	var f File
	for {
		if err := p.skipSpace(); err != nil {
			return nil, err
		}
		pos := p.pos()
		cmd := p.peekCommand()
		if cmd == "version" {
			if f.Version != nil {
				return nil, p.errorf(pos, "duplicate \\version statement")
			}
			v, err := p.parseVersion()
			if err != nil {
				return nil, err
			}
			f.Version = v
		} else if cmd == "language" {
			if f.Language != nil {
				return nil, p.errorf(pos, "duplicate \\language statement")
			}
			l, err := p.parseLanguage()
			if err != nil {
				return nil, err
			}
			f.Language = l
		} else {
			break
		}
	}
	pos := p.pos()
	switch p.peekCommand() {
	case "":
		if !p.eof() {
			c, err := p.parseStaffContent(0)
			if err != nil {
				return nil, err
			}
			f.Music = c
		}
	case "score":
		p.advance(len(`\score`))
		s, err := p.parseScoreBody(pos)
		if err != nil {
			return nil, err
		}
		f.Score = s
	case "new":
		ctx, err := p.parseNew()
		if err != nil {
			return nil, err
		}
		switch {
		case ctx == "Score":
			s, err := p.parseScoreBody(pos)
			if err != nil {
				return nil, err
			}
			f.Score = s
		case ctx == "Staff":
			s, err := p.parseStaffBody(pos)
			if err != nil {
				return nil, err
			}
			f.Staff = s
		default:
			if _, ok := groupContexts[ctx]; !ok {
				return nil, p.errorf(pos, "unknown context: %q", ctx)
			}
			g, err := p.parseStaffGroupBody(pos, ctx)
			if err != nil {
				return nil, err
			}
			f.Score = &Score{Pos: pos, Members: []Member{g}}
		}
	default:
		c, err := p.parseStaffContent(0)
		if err != nil {
			return nil, err
		}
		f.Music = c
	}
	if err := p.skipSpace(); err != nil {
		return nil, err
	}
	if !p.eof() {
		return nil, p.unexpected("end of file")
	}
	return &f, nil
}

func (p *parser) parseVersion() (*Version, error) {
	pos := p.pos()
	p.advance(len(`\version`))
	if err := p.skipSpace(); err != nil {
		return nil, err
	}
	s, err := p.parseString()
	if err != nil {
		return nil, err
	}
	parts := strings.Split(s, ".")
	for _, part := range parts {
		for i := 0; i < len(part); i++ {
			if !isDigit(part[i]) {
				return nil, p.errorf(pos, "invalid version: %q", s)
			}
		}
	}
	return &Version{Pos: pos, Parts: parts}, nil
}

func (p *parser) parseLanguage() (*Language, error) {
	pos := p.pos()
	p.advance(len(`\language`))
	if err := p.skipSpace(); err != nil {
		return nil, err
	}
	s, err := p.parseString()
	if err != nil {
		return nil, err
	}
	return &Language{Pos: pos, Name: s}, nil
}

// parseNew consumes \new and the context name following it.
func (p *parser) parseNew() (string, error) {
	if err := p.expectCommand("new"); err != nil {
		return "", err
	}
	if err := p.skipSpace(); err != nil {
		return "", err
	}
	ctx := p.span(isLetter)
	if ctx == "" {
		return "", p.unexpected("context name")
	}
	p.advance(len(ctx))
	return ctx, nil
}

func (p *parser) parseScoreBody(pos Pos) (*Score, error) {
	s := Score{Pos: pos}
	if err := p.skipSpace(); err != nil {
		return nil, err
	}
	switch {
	case p.peek() == '{':
		p.advance(1)
		ms, err := p.parseMembers()
		if err != nil {
			return nil, err
		}
		s.Members = ms
		if err := p.skipSpace(); err != nil {
			return nil, err
		}
		if p.peekCommand() == "layout" {
			if err := p.parseLayout(); err != nil {
				return nil, err
			}
			s.Layout = true
		}
		if err := p.expect("}"); err != nil {
			return nil, err
		}
	case p.hasPrefix("<<"):
		ms, err := p.parseMembers()
		if err != nil {
			return nil, err
		}
		s.Members = ms
	default:
		return nil, p.unexpected(`"{" or "<<"`)
	}
	return &s, nil
}

// parseLayout consumes a \layout block. Its contents are ignored.
func (p *parser) parseLayout() error {
	start := p.pos()
	p.advance(len(`\layout`))
	if err := p.expect("{"); err != nil {
		return err
	}
	for depth := 1; depth > 0; {
		if err := p.skipSpace(); err != nil {
			return err
		}
		if p.eof() {
			return p.errorf(start, "unterminated \\layout block")
		}
		switch p.peek() {
		case '{':
			depth++
			p.advance(1)
		case '}':
			depth--
			p.advance(1)
		case '"':
			if _, err := p.parseString(); err != nil {
				return err
			}
		default:
			p.advance(1)
		}
	}
	return nil
}

// parseMembers parses << member+ >>.
func (p *parser) parseMembers() ([]Member, error) {
	if err := p.expect("<<"); err != nil {
		return nil, err
	}
	var ms []Member
	for {
		if err := p.skipSpace(); err != nil {
			return nil, err
		}
		if p.hasPrefix(">>") {
			break
		}
		pos := p.pos()
		ctx, err := p.parseNew()
		if err != nil {
			return nil, err
		}
		if ctx == "Staff" {
			s, err := p.parseStaffBody(pos)
			if err != nil {
				return nil, err
			}
			ms = append(ms, s)
		} else if _, ok := groupContexts[ctx]; ok {
			g, err := p.parseStaffGroupBody(pos, ctx)
			if err != nil {
				return nil, err
			}
			ms = append(ms, g)
		} else {
			return nil, p.errorf(pos, "expected Staff or staff group, got %q", ctx)
		}
	}
	if len(ms) == 0 {
		return nil, p.unexpected(`\new Staff`)
	}
	p.advance(2)
	return ms, nil
}

func (p *parser) parseStaffGroupBody(pos Pos, ctx string) (*StaffGroup, error) {
	ms, err := p.parseMembers()
	if err != nil {
		return nil, err
	}
	return &StaffGroup{Pos: pos, Context: ctx, Members: ms}, nil
}

func (p *parser) parseStaffBody(pos Pos) (*Staff, error) {
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	c, err := p.parseStaffContent('}')
	if err != nil {
		return nil, err
	}
	if err := p.expect("}"); err != nil {
		return nil, err
	}
	return &Staff{Pos: pos, Content: c}, nil
}

// atEnd returns true at the closing delimiter of staff content. A delimiter of
// 0 is the end of the file.
func (p *parser) atEnd(end byte) bool {
	if end == 0 {
		return p.eof()
	}
	return p.peek() == end
}

func (p *parser) atSetting() bool {
	switch p.peekCommand() {
	case "clef", "key", "time", "set":
		return true
	}
	return false
}

func (p *parser) parseStaffContent(end byte) (*StaffContent, error) {
	var c StaffContent
	for {
		if err := p.skipSpace(); err != nil {
			return nil, err
		}
		if !p.atSetting() {
			break
		}
		s, err := p.parseSetting()
		if err != nil {
			return nil, err
		}
		c.Settings = append(c.Settings, s)
	}
	for {
		if err := p.skipSpace(); err != nil {
			return nil, err
		}
		if p.atEnd(end) {
			break
		}
		if p.hasPrefix("<<") {
			b, err := p.parsePolyphonic()
			if err != nil {
				return nil, err
			}
			c.Blocks = append(c.Blocks, b)
			continue
		}
		pos := p.pos()
		l, err := p.parseNodes(func() bool {
			return p.atEnd(end) || p.hasPrefix("<<")
		})
		if err != nil {
			return nil, err
		}
		c.Blocks = append(c.Blocks, &Block{Pos: pos, Layers: []*Layer{l}})
	}
	if len(c.Blocks) == 0 {
		return nil, p.unexpected("music")
	}
	return &c, nil
}

// parsePolyphonic parses << { layer } \\ { layer } ... >>.
func (p *parser) parsePolyphonic() (*Block, error) {
	b := Block{Pos: p.pos(), Polyphonic: true}
	p.advance(2)
	if err := p.skipSpace(); err != nil {
		return nil, err
	}
	if !p.hasPrefix(">>") {
		for {
			if err := p.expect("{"); err != nil {
				return nil, err
			}
			l, err := p.parseNodes(func() bool {
				return p.peek() == '}'
			})
			if err != nil {
				return nil, err
			}
			if len(l.Nodes) == 0 {
				return nil, p.unexpected("music")
			}
			p.advance(1)
			b.Layers = append(b.Layers, l)
			if err := p.skipSpace(); err != nil {
				return nil, err
			}
			if !p.hasPrefix(`\\`) {
				break
			}
			p.advance(2)
		}
	}
	if err := p.expect(">>"); err != nil {
		return nil, err
	}
	return &b, nil
}

// parseNodes parses nodes until stop returns true.
func (p *parser) parseNodes(stop func() bool) (*Layer, error) {
	if err := p.skipSpace(); err != nil {
		return nil, err
	}
	l := Layer{Pos: p.pos()}
	for {
		if err := p.skipSpace(); err != nil {
			return nil, err
		}
		if stop() {
			return &l, nil
		}
		n, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		l.Nodes = append(l.Nodes, n)
	}
}

func (p *parser) parseNode() (Node, error) {
	pos := p.pos()
	switch c := p.peek(); {
	case c == '|':
		p.advance(1)
		return &Barcheck{Pos: pos}, nil
	case c == '<' && !p.hasPrefix("<<"):
		return p.parseChord()
	case c == 'R':
		p.advance(1)
		d, evs, err := p.parseDurationEvents()
		if err != nil {
			return nil, err
		}
		return &MeasureRest{Pos: pos, Duration: d, PostEvents: evs}, nil
	case isLower(c):
		return p.parseWordNode()
	case p.atSetting():
		return p.parseSetting()
	default:
		return nil, p.unexpected("note, rest, chord, or setting")
	}
}

func (p *parser) parseWordNode() (Node, error) {
	pos := p.pos()
	word := p.span(isLower)
	p.advance(len(word))
	switch word {
	case "r":
		d, evs, err := p.parseDurationEvents()
		if err != nil {
			return nil, err
		}
		return &Rest{Pos: pos, Duration: d, PostEvents: evs}, nil
	case "s":
		d, evs, err := p.parseDurationEvents()
		if err != nil {
			return nil, err
		}
		return &Spacer{Pos: pos, Duration: d, PostEvents: evs}, nil
	}
	pi, err := p.parsePitch(pos, word)
	if err != nil {
		return nil, err
	}
	d, evs, err := p.parseDurationEvents()
	if err != nil {
		return nil, err
	}
	return &Note{Pos: pos, Pitch: pi, Duration: d, PostEvents: evs}, nil
}

func (p *parser) parseChord() (Node, error) {
	pos := p.pos()
	p.advance(1)
	ch := Chord{Pos: pos}
	for {
		if err := p.skipSpace(); err != nil {
			return nil, err
		}
		if p.peek() == '>' {
			p.advance(1)
			break
		}
		npos := p.pos()
		word := p.span(isLower)
		if word == "" {
			return nil, p.unexpected(`pitch or ">"`)
		}
		p.advance(len(word))
		pi, err := p.parsePitch(npos, word)
		if err != nil {
			return nil, err
		}
		evs, err := p.parsePostEvents()
		if err != nil {
			return nil, err
		}
		ch.Notes = append(ch.Notes, &ChordNote{Pos: npos, Pitch: pi, PostEvents: evs})
	}
	d, evs, err := p.parseDurationEvents()
	if err != nil {
		return nil, err
	}
	ch.Duration = d
	ch.PostEvents = evs
	return &ch, nil
}

// splitPitchName splits a pitch word into its letter and accidental
// syllables. A word which is not a letter followed by whole "es" and "is"
// syllables keeps its remainder as a single syllable.
func splitPitchName(word string) (string, []string) {
	name, rest := word[:1], word[1:]
	var accid []string
	for s := rest; s != ""; s = s[2:] {
		if !strings.HasPrefix(s, "es") && !strings.HasPrefix(s, "is") {
			return name, []string{rest}
		}
		accid = append(accid, s[:2])
	}
	return name, accid
}

// parsePitch parses the octave marks and accidental marker following a pitch
// word, which has already been consumed.
func (p *parser) parsePitch(pos Pos, word string) (Pitch, error) {
	if len(word) == 1 && !isPitchLetter(word[0]) {
		return Pitch{}, p.errorf(pos, "invalid pitch name: %q", word)
	}
	var pi Pitch
	pi.Name, pi.Accid = splitPitchName(word)
	switch p.peek() {
	case ',':
		marks := p.span(func(c byte) bool { return c == ',' })
		if len(marks) > 2 {
			return Pitch{}, p.errorf(p.pos(), "too many octave marks: %q", marks)
		}
		pi.Octave = marks
		p.advance(len(marks))
	case '\'':
		marks := p.span(func(c byte) bool { return c == '\'' })
		if len(marks) > 5 {
			return Pitch{}, p.errorf(p.pos(), "too many octave marks: %q", marks)
		}
		pi.Octave = marks
		p.advance(len(marks))
	}
	switch c := p.peek(); c {
	case '!', '?':
		pi.Force = c
		p.advance(1)
	}
	return pi, nil
}

// parseDuration parses an optional duration and its dots. The duration must
// immediately follow the preceding token.
func (p *parser) parseDuration() (Duration, error) {
	var d Duration
	switch p.peekCommand() {
	case "breve":
		d.Value = "breve"
		p.advance(len(`\breve`))
	case "longa":
		d.Value = "long"
		p.advance(len(`\longa`))
	default:
		for _, n := range durationNumbers {
			if p.hasPrefix(n) {
				d.Value = n
				p.advance(len(n))
				break
			}
		}
		if d.Value == "" {
			if isDigit(p.peek()) {
				return d, p.errorf(p.pos(), "invalid duration: %q", p.span(isDigit))
			}
			return d, nil
		}
	}
	for p.peek() == '.' {
		d.Dots++
		p.advance(1)
	}
	return d, nil
}

// parsePostEvents parses ties and slurs following a note. Whitespace may come
// before each event.
func (p *parser) parsePostEvents() ([]string, error) {
	var evs []string
	for {
		save := p.scanner
		if err := p.skipSpace(); err != nil {
			return nil, err
		}
		switch c := p.peek(); c {
		case '~', '(', ')':
			evs = append(evs, string(c))
			p.advance(1)
		default:
			p.scanner = save
			return evs, nil
		}
	}
}

func (p *parser) parseDurationEvents() (Duration, []string, error) {
	d, err := p.parseDuration()
	if err != nil {
		return d, nil, err
	}
	evs, err := p.parsePostEvents()
	if err != nil {
		return d, nil, err
	}
	return d, evs, nil
}

// =============================================================================

func (p *parser) parseSetting() (Setting, error) {
	pos := p.pos()
	cmd := p.peekCommand()
	p.advance(len(cmd) + 1)
	if err := p.skipSpace(); err != nil {
		return nil, err
	}
	switch cmd {
	case "clef":
		return p.parseClef(pos)
	case "key":
		return p.parseKey(pos)
	case "time":
		return p.parseTime(pos)
	case "set":
		return p.parseSet(pos)
	default:
		panic("bad state")
	}
}

func isClefChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_' || c == '^' || c == '-'
}

func (p *parser) parseClef(pos Pos) (Setting, error) {
	if p.peek() == '"' {
		s, err := p.parseString()
		if err != nil {
			return nil, err
		}
		return &Clef{Pos: pos, Name: s}, nil
	}
	name := p.span(isClefChar)
	if name == "" {
		return nil, p.unexpected("clef name")
	}
	p.advance(len(name))
	return &Clef{Pos: pos, Name: name}, nil
}

func (p *parser) parseKey(pos Pos) (Setting, error) {
	wpos := p.pos()
	word := p.span(isLower)
	if word == "" {
		return nil, p.unexpected("pitch")
	}
	if len(word) == 1 && !isPitchLetter(word[0]) {
		return nil, p.errorf(wpos, "invalid pitch name: %q", word)
	}
	p.advance(len(word))
	k := Key{Pos: pos}
	k.Letter, k.Accid = splitPitchName(word)
	if err := p.skipSpace(); err != nil {
		return nil, err
	}
	switch mode := p.peekCommand(); mode {
	case "major", "minor":
		k.Mode = mode
		p.advance(len(mode) + 1)
	default:
		return nil, p.unexpected(`\major or \minor`)
	}
	return &k, nil
}

func (p *parser) parseTime(pos Pos) (Setting, error) {
	count := p.span(isDigit)
	if count == "" || count[0] == '0' || len(count) > 2 {
		return nil, p.errorf(p.pos(), "invalid time signature numerator: %q", count)
	}
	p.advance(len(count))
	if p.peek() != '/' {
		return nil, p.unexpected(`"/"`)
	}
	p.advance(1)
	upos := p.pos()
	digits := p.span(isDigit)
	var unit string
	for _, n := range durationNumbers {
		if digits == n {
			unit = n
			break
		}
	}
	if unit == "" {
		return nil, p.errorf(upos, "invalid time signature denominator: %q", digits)
	}
	p.advance(len(unit))
	return &Time{Pos: pos, Count: count, Unit: unit}, nil
}

func (p *parser) parseSet(pos Pos) (Setting, error) {
	if ctx := p.span(isLetter); ctx != "Staff" {
		return nil, p.unexpected("Staff")
	}
	p.advance(len("Staff"))
	if p.peek() != '.' {
		return nil, p.unexpected(`"."`)
	}
	p.advance(1)
	prop := p.span(isLetter)
	if prop == "" {
		return nil, p.unexpected("property name")
	}
	p.advance(len(prop))
	if err := p.expect("="); err != nil {
		return nil, err
	}
	if err := p.skipSpace(); err != nil {
		return nil, err
	}
	if p.peek() == '#' {
		p.advance(1)
	}
	value, err := p.parseString()
	if err != nil {
		return nil, err
	}
	if prop == "instrumentName" {
		return &InstrName{Pos: pos, Name: value}, nil
	}
	return &StaffProperty{Pos: pos, Name: prop, Value: value}, nil
}

// =============================================================================

// checkText returns an error for invalid UTF-8 or control characters.
func checkText(data []byte) error {
	line, lineStart := 1, 0
	for i := 0; i < len(data); {
		r, n := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && n == 1 {
			return &Error{line, i - lineStart + 1, errors.New("invalid UTF-8")}
		}
		if r == '\n' {
			line++
			lineStart = i + 1
		} else if (r < 32 && r != '\t' && r != '\r') || r == 127 {
			return &Error{line, i - lineStart + 1, fmt.Errorf("invalid control character: 0x%02x", r)}
		}
		i += n
	}
	return nil
}

// Parse parses a LilyPond document. The document is a score, a single staff,
// or bare staff content, optionally preceded by \version and \language
// statements. Syntax errors are returned as *Error.
func Parse(data []byte) (*File, error) {
	if err := checkText(data); err != nil {
		return nil, err
	}
	p := parser{scanner{data: data, line: 1}}
	return p.parseFile()
}
