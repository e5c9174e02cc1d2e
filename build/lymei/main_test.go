package main

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"moria.us/lymei/build/convert"
	"moria.us/lymei/build/ly"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SENTRY_DSN", "")
	var out bytes.Buffer
	cmd := newCommand(&app{stdin: strings.NewReader(stdin)})
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env", "", "--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConvertCommand(t *testing.T) {
	out, err := run(t, `\key fis \minor c'4`, "convert", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `<staffDef n="1" lines="5" key.sig="3s"/>`)
	assert.Contains(t, out, `<note dur="4" pname="c" oct="4"/>`)

	out, err = run(t, "c8 d8", "convert", "--autobeam", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "<beamSpan ")

	out, err = run(t, "c4", "convert", "--format", "json", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"section"`)

	_, err = run(t, "c4 q4", "convert", "-")
	var se *ly.Error
	assert.True(t, errors.As(err, &se))

	_, err = run(t, "c4", "convert", "--format", "yaml", "-")
	assert.Error(t, err)

	_, err = run(t, "", "convert")
	assert.Error(t, err)
}

func TestConvertCommandFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.ly")
	outf := filepath.Join(dir, "out.pb")
	require.NoError(t, os.WriteFile(in, []byte("c4 r4"), 0666))
	out, err := run(t, "", "convert", "--format", "pb", "-o", outf, in)
	require.NoError(t, err)
	assert.Empty(t, out)
	data, err := os.ReadFile(outf)
	require.NoError(t, err)
	var st structpb.Struct
	require.NoError(t, proto.Unmarshal(data, &st))
	assert.Equal(t, "section", st.Fields["tag"].GetStringValue())

	_, err = run(t, "", "convert", filepath.Join(dir, "missing.ly"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestArchiveCommand(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"lymei.json": `{"title": "T", "sources": ["a.ly", "b.ly"], "outDir": "out", "archive": "songs"}`,
		"a.ly":       "c4 d4",
		"b.ly":       "e4",
	}
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0666))
	}
	_, err := run(t, "", "archive", "--dir", dir, "--outputs")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "out", "a.mei"))
	assert.FileExists(t, filepath.Join(dir, "out", "b.mei"))
	zr, err := zip.OpenReader(filepath.Join(dir, "songs.zip"))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	zr.Close()
	assert.Equal(t, []string{"a.mei", "b.mei"}, names)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.ly"), []byte("e4 q"), 0666))
	_, err = run(t, "", "archive", "--dir", dir)
	assert.Equal(t, errFailed, err)

	_, err = run(t, "", "archive", "--dir", dir, "--config", "missing.json")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	r, err := convert.ConvertPure([]byte("c4"), nil)
	require.NoError(t, err)
	for _, format := range []string{formatXML, formatJSON, formatPB} {
		data, err := render(r.Section, format, "")
		assert.NoError(t, err, format)
		assert.NotEmpty(t, data, format)
	}
	_, err = render(r.Section, formatXML, "ebcdic")
	assert.Error(t, err)
}

func TestIncomplete(t *testing.T) {
	type testcase struct {
		src        string
		incomplete bool
	}
	cases := []testcase{
		{`\new Staff {`, true},
		{"\\new Staff { c4\n  d4", true},
		{`\score << \new Staff { c4 }`, true},
		{`\time 3/`, true},
		{"c4 q4", false},
		{"c4 }", false},
		{"c3 d4", false},
	}
	for _, c := range cases {
		_, err := ly.Parse([]byte(c.src))
		require.Error(t, err, "source %q", c.src)
		assert.Equal(t, c.incomplete, incomplete(c.src, err), "source %q", c.src)
	}
	assert.False(t, incomplete("", errors.New("x")))

	line, col := endPos("ab\ncde")
	assert.Equal(t, 2, line)
	assert.Equal(t, 4, col)
}

func TestSession(t *testing.T) {
	var out bytes.Buffer
	s := session{out: &out}
	s.eval(`\clef varbaritone c8 d8`)
	assert.Contains(t, out.String(), `<note dur="8" pname="c" oct="3"/>`)
	assert.Contains(t, out.String(), `warning: 1:1: unknown clef: "varbaritone"`)
	assert.NotContains(t, out.String(), "beamSpan")

	out.Reset()
	assert.True(t, s.command(":autobeam"))
	assert.True(t, s.autobeam)
	s.eval("c8 d8")
	assert.Contains(t, out.String(), "<beamSpan ")

	out.Reset()
	assert.True(t, s.command(":json"))
	s.eval("c4")
	assert.Contains(t, out.String(), `"section"`)
	assert.NotContains(t, out.String(), "<section")

	out.Reset()
	s.eval(`\key gis \major c4`)
	assert.Equal(t, "error: 1:1: unknown key signature: gis \\major\n", out.String())

	assert.True(t, s.command(":help"))
	assert.False(t, s.command(":quit"))
}
