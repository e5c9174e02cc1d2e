package project

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"moria.us/lymei/build/convert"
	"moria.us/lymei/build/mei"
	"moria.us/lymei/build/report"
)

// DefaultConfig is the name of the project configuration file.
const DefaultConfig = "lymei.json"

// A Config contains the project configuration.
type Config struct {
	Title    string   `json:"title"`
	Sources  []string `json:"sources"`
	OutDir   string   `json:"outDir"`
	Archive  string   `json:"archive"`
	Autobeam bool     `json:"autobeam"`
}

// A Project is a set of LilyPond documents which are converted together.
type Project struct {
	BaseDir string
	Config  Config

	// Reporter, if not nil, receives a report for each conversion.
	Reporter *report.Reporter
	// Logger receives conversion diagnostics. If nil, the standard logger is
	// used.
	Logger logrus.FieldLogger
}

// Load loads a project with the given base directory and configuration
// file.
func Load(base, config string) (*Project, error) {
	p := Project{
		BaseDir: filepath.Clean(base),
	}
	data, err := os.ReadFile(filepath.Join(base, config))
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	c := &p.Config
	if err := dec.Decode(c); err != nil {
		return nil, fmt.Errorf("invalid config %q: %v", config, err)
	}
	log := logrus.StandardLogger().WithField("config", config)
	if c.Title == "" {
		log.Warn("missing or empty 'title'")
	}
	srcs := c.Sources[:0]
	names := make(map[string]string)
	for _, src := range c.Sources {
		if !IsSourcePath(src) {
			log.Warnf("invalid source: %q", src)
			continue
		}
		name := DocumentName(src)
		if prev, ok := names[name]; ok {
			log.Warnf("source %q has the same name as %q", src, prev)
			continue
		}
		names[name] = src
		srcs = append(srcs, src)
	}
	c.Sources = srcs
	if len(c.Sources) == 0 {
		log.Warn("missing or empty 'sources'")
	}
	if c.OutDir == "" {
		log.Warn("missing or empty 'outDir'")
	} else if !safePath.MatchString(c.OutDir) {
		log.Warnf("invalid outDir: %q", c.OutDir)
		c.OutDir = ""
	}
	if c.Archive != "" && !safeName.MatchString(c.Archive) {
		log.Warnf("invalid archive: %q", c.Archive)
		c.Archive = ""
	}
	return &p, nil
}

var (
	safeName   = regexp.MustCompile(`^[a-zA-Z0-9]+([-._][a-zA-Z0-9]+)*$`)
	safePath   = regexp.MustCompile(`^[a-zA-Z0-9][-._a-zA-Z0-9]*(?:/[a-zA-Z0-9][-._a-zA-Z0-9]*)*$`)
	sourceName = regexp.MustCompile(`^[a-zA-Z0-9]+([-._][a-zA-Z0-9]+)*\.ly$`)
)

// IsSourceName returns true if the filename is the name of a LilyPond source
// file.
func IsSourceName(name string) bool {
	return sourceName.MatchString(name)
}

// IsSourcePath returns true if the slash-separated path, relative to the
// project directory, names a LilyPond source file.
func IsSourcePath(p string) bool {
	return safePath.MatchString(p) && IsSourceName(path.Base(p))
}

// DocumentName returns the name of the document converted from the given
// source path.
func DocumentName(src string) string {
	return strings.TrimSuffix(path.Base(src), ".ly")
}

// SourceFiles returns the paths of the source files on disk.
func (p *Project) SourceFiles() []string {
	fs := make([]string, len(p.Config.Sources))
	for i, src := range p.Config.Sources {
		fs[i] = filepath.Join(p.BaseDir, filepath.FromSlash(src))
	}
	return fs
}

// A Document is the result of converting one source file. If the conversion
// failed, Err is set and Result is nil.
type Document struct {
	Name    string
	Source  string
	ModTime time.Time
	Result  *convert.Result
	Err     error
}

// ConvertAll converts every source in the project. Conversion errors are
// stored in each document. An error is returned only if the context is done.
func (p *Project) ConvertAll(ctx context.Context) ([]*Document, error) {
	opts := convert.Options{
		Logger:   p.Logger,
		Autobeam: p.Config.Autobeam,
	}
	files := p.SourceFiles()
	docs := make([]*Document, 0, len(files))
	for i, src := range p.Config.Sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d := Document{
			Name:   DocumentName(src),
			Source: src,
		}
		docs = append(docs, &d)
		st, err := os.Stat(files[i])
		if err != nil {
			d.Err = err
			continue
		}
		d.ModTime = st.ModTime()
		data, err := os.ReadFile(files[i])
		if err != nil {
			d.Err = err
			continue
		}
		l := p.Reporter.Listener(ctx, d.Name)
		d.Result, d.Err = convert.Convert(data, l, &opts)
		if d.Err != nil {
			d.Err = fmt.Errorf("%s: %w", src, d.Err)
		}
	}
	return docs, nil
}

// Failed returns the first conversion error among the documents.
func Failed(docs []*Document) error {
	for _, d := range docs {
		if d.Err != nil {
			return d.Err
		}
	}
	return nil
}

// WriteOutputs writes an MEI file to the output directory for each document
// which was converted successfully, and returns the paths written.
func (p *Project) WriteOutputs(docs []*Document) ([]string, error) {
	if p.Config.OutDir == "" {
		return nil, fmt.Errorf("no output directory")
	}
	dir := filepath.Join(p.BaseDir, filepath.FromSlash(p.Config.OutDir))
	if err := os.MkdirAll(dir, 0777); err != nil {
		return nil, err
	}
	var out []string
	for _, d := range docs {
		if d.Result == nil {
			continue
		}
		data, err := mei.MarshalXML(d.Result.Section, "")
		if err != nil {
			return out, fmt.Errorf("%s: %w", d.Source, err)
		}
		fp := filepath.Join(dir, d.Name+".mei")
		if err := os.WriteFile(fp, data, 0666); err != nil {
			return out, err
		}
		out = append(out, fp)
	}
	return out, nil
}

// WriteArchive writes a zip archive of the converted documents, and returns
// its path.
func (p *Project) WriteArchive(ctx context.Context, docs []*Document) (string, error) {
	if p.Config.Archive == "" {
		return "", fmt.Errorf("no archive filename")
	}
	z, err := BuildZip(ctx, docs)
	if err != nil {
		return "", err
	}
	zpath := filepath.Join(p.BaseDir, p.Config.Archive+".zip")
	if err := os.WriteFile(zpath, z, 0666); err != nil {
		return "", err
	}
	return zpath, nil
}
