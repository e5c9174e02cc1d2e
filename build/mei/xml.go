package mei

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

type charError struct {
	char rune
}

func (e *charError) Error() string {
	var msg string
	if isControlCharacter(e.char) {
		msg = "prohibited control character"
	} else if e.char >= 0x80 {
		msg = "prohibited Unicode character"
	} else {
		msg = "prohibited character"
	}
	return fmt.Sprintf("%s: %q (U+%04X)", msg, e.char, e.char)
}

var errEmpty = errors.New("cannot be empty")

type dataError struct {
	context string
	text    string
	err     error
}

func (e *dataError) Error() string {
	if e.text == "" {
		return e.context + ": " + e.err.Error()
	}
	return e.context + " " + strconv.Quote(e.text) + ": " + e.err.Error()
}

func isControlCharacter(c rune) bool {
	return (c <= 0x1f && c != '\t' && c != '\n' && c != '\r') || (0x7f <= c && c <= 0x9f)
}

func isNonCharacter(c rune) bool {
	return (0xfdd0 <= c && c <= 0xfdef) || (c&0xfffe) == 0xfffe
}

// =============================================================================

// An XMLWriter writes indented XML elements to a buffer.
//
// Like bufio.Writer, if an error occurs writing to a writer, all future writes
// will be ignored. The error will be returned by Finish.
type XMLWriter struct {
	charmap   *charmap.Charmap
	buf       bytes.Buffer
	stack     []string
	isTagOpen bool
	err       error
}

// SetCharset makes the writer encode its output with the given character
// map. Characters outside the map are written as character references.
func (w *XMLWriter) SetCharset(c *charmap.Charmap) {
	w.charmap = c
}

func (w *XMLWriter) writeString(s string) {
	if cm := w.charmap; cm != nil {
		for _, c := range s {
			if b, ok := cm.EncodeRune(c); ok {
				w.buf.WriteByte(b)
			} else {
				w.buf.WriteString("&#")
				w.buf.WriteString(strconv.FormatUint(uint64(c), 10))
				w.buf.WriteByte(';')
			}
		}
	} else {
		w.buf.WriteString(s)
	}
}

func writeName(buf *bytes.Buffer, name string) error {
	if len(name) == 0 {
		return errEmpty
	}
	for i, c := range name {
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' ||
			i > 0 && ('0' <= c && c <= '9' || c == '.' || c == '-' || c == ':')) {
			return &charError{c}
		}
	}
	buf.WriteString(name)
	return nil
}

func (w *XMLWriter) writeAttrValue(value string) error {
	var b strings.Builder
	for _, c := range value {
		switch c {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '"':
			b.WriteString("&quot;")
		default:
			if isControlCharacter(c) || isNonCharacter(c) {
				return &charError{c}
			}
			b.WriteRune(c)
		}
	}
	w.writeString(b.String())
	return nil
}

func (w *XMLWriter) newline() {
	w.buf.WriteByte('\n')
	for range w.stack {
		w.buf.WriteString("  ")
	}
}

func (w *XMLWriter) finishTag() {
	if w.isTagOpen {
		w.buf.WriteByte('>')
		w.isTagOpen = false
	}
}

// Declaration writes the XML declaration. It must be called before any other
// method.
func (w *XMLWriter) Declaration(encoding string) {
	if w.err != nil {
		return
	}
	if w.buf.Len() != 0 {
		w.err = errors.New("declaration must come first")
		return
	}
	fmt.Fprintf(&w.buf, "<?xml version=\"1.0\" encoding=%q?>", encoding)
}

// OpenTag writes an opening tag to the document.
func (w *XMLWriter) OpenTag(name string) {
	if w.err != nil {
		return
	}
	w.finishTag()
	if w.buf.Len() != 0 {
		w.newline()
	}
	w.buf.WriteByte('<')
	if err := writeName(&w.buf, name); err != nil {
		w.err = &dataError{
			context: "tag name",
			text:    name,
			err:     err,
		}
		return
	}
	w.stack = append(w.stack, name)
	w.isTagOpen = true
}

// CloseTag closes the innermost open element. Elements with no children are
// written as empty-element tags.
func (w *XMLWriter) CloseTag() {
	if w.err != nil {
		return
	}
	if len(w.stack) == 0 {
		w.err = errors.New("no element is open")
		return
	}
	name := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]
	if w.isTagOpen {
		w.buf.WriteString("/>")
		w.isTagOpen = false
	} else {
		w.newline()
		w.buf.WriteString("</")
		w.buf.WriteString(name)
		w.buf.WriteByte('>')
	}
}

// Attr adds an attribute to the currently open tag. It is an error to write an
// attribute without a call to OpenTag first, or if any other method besides
// Attr has been called since the last call to OpenTag.
func (w *XMLWriter) Attr(key, value string) {
	if w.err != nil {
		return
	}
	if !w.isTagOpen {
		w.err = errors.New("cannot add attribute, no tag is open")
		return
	}
	w.buf.WriteByte(' ')
	if err := writeName(&w.buf, key); err != nil {
		w.err = &dataError{
			context: "attr name",
			text:    key,
			err:     err,
		}
		return
	}
	w.buf.WriteString("=\"")
	if err := w.writeAttrValue(value); err != nil {
		w.err = &dataError{
			context: "attr",
			text:    key,
			err:     err,
		}
		return
	}
	w.buf.WriteByte('"')
}

// Finish returns the full contents of the XML document, or returns an error if
// an error occurred during writing.
func (w *XMLWriter) Finish() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	if len(w.stack) != 0 {
		return nil, fmt.Errorf("unclosed <%s>", w.stack[len(w.stack)-1])
	}
	w.buf.WriteByte('\n')
	return w.buf.Bytes(), nil
}

// =============================================================================

var charsets = map[string]*charmap.Charmap{
	"iso-8859-1":   charmap.ISO8859_1,
	"iso-8859-15":  charmap.ISO8859_15,
	"windows-1252": charmap.Windows1252,
}

// MarshalXML serializes an element and its descendants as an XML document.
// The tag of each element becomes the XML element name and each attribute
// becomes an XML attribute. The charset is "" or "utf-8" for UTF-8 output, or
// the name of a supported single-byte charset.
func MarshalXML(e Element, charset string) ([]byte, error) {
	var w XMLWriter
	encoding := "UTF-8"
	if cs := strings.ToLower(charset); cs != "" && cs != "utf-8" {
		cm, ok := charsets[cs]
		if !ok {
			return nil, fmt.Errorf("unsupported charset: %q", charset)
		}
		w.SetCharset(cm)
		encoding = strings.ToUpper(cs)
	}
	w.Declaration(encoding)
	w.OpenTag(e.Tag())
	w.Attr("xmlns", Namespace)
	writeElement(&w, e)
	return w.Finish()
}

func writeElement(w *XMLWriter, e Element) {
	for _, a := range e.Attrs() {
		w.Attr(a.Name, a.Value)
	}
	for _, c := range e.Children() {
		w.OpenTag(c.Tag())
		writeElement(w, c)
	}
	w.CloseTag()
}
