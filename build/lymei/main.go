// Command lymei converts LilyPond documents to Lychee-MEI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"moria.us/lymei/build/convert"
	"moria.us/lymei/build/mei"
	"moria.us/lymei/build/project"
	"moria.us/lymei/build/report"
)

// Output formats.
const (
	formatXML  = "xml"
	formatJSON = "json"
	formatPB   = "pb"
)

var errFailed = errors.New("conversion failed")

type app struct {
	logLevel string
	envFile  string
	reporter *report.Reporter
	stdin    io.Reader
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	level, err := logrus.ParseLevel(a.logLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	if a.envFile != "" {
		if err := report.LoadEnv(a.envFile); err != nil {
			return err
		}
	}
	a.reporter, err = report.FromEnv("lymei")
	return err
}

// render serializes a converted section.
func render(sec *mei.Section, format, charset string) ([]byte, error) {
	switch format {
	case formatXML:
		return mei.MarshalXML(sec, charset)
	case formatJSON:
		return mei.MarshalJSON(sec)
	case formatPB:
		return mei.MarshalBinary(sec)
	default:
		return nil, fmt.Errorf("unknown format: %q", format)
	}
}

type convertFlags struct {
	output   string
	format   string
	charset  string
	autobeam bool
}

func (a *app) convert(ctx context.Context, cmd *cobra.Command, name string, f *convertFlags) error {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(a.stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return err
	}
	opts := convert.Options{
		Logger:   logrus.StandardLogger().WithField("file", name),
		Autobeam: f.autobeam,
	}
	r, err := convert.Convert(data, a.reporter.Listener(ctx, name), &opts)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	out, err := render(r.Section, f.format, f.charset)
	if err != nil {
		return err
	}
	if f.output == "" {
		_, err := cmd.OutOrStdout().Write(out)
		return err
	}
	if err := os.WriteFile(f.output, out, 0666); err != nil {
		return err
	}
	logrus.Infoln("Output:", f.output)
	return nil
}

func (a *app) convertCommand() *cobra.Command {
	var f convertFlags
	cmd := &cobra.Command{
		Use:   "convert FILE",
		Short: "Convert a LilyPond file to MEI",
		Long:  "Convert a LilyPond file to MEI. Use - to read from standard input.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.convert(cmd.Context(), cmd, args[0], &f)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.output, "output", "o", "", "output file (default standard output)")
	fl.StringVar(&f.format, "format", formatXML, "output format: xml, json, or pb")
	fl.StringVar(&f.charset, "charset", "", "XML character encoding (default UTF-8)")
	fl.BoolVar(&f.autobeam, "autobeam", false, "add beams to short notes")
	return cmd
}

type archiveFlags struct {
	dir     string
	config  string
	outputs bool
}

func (a *app) archive(ctx context.Context, f *archiveFlags) error {
	p, err := project.Load(f.dir, f.config)
	if err != nil {
		return err
	}
	p.Reporter = a.reporter
	docs, err := p.ConvertAll(ctx)
	if err != nil {
		return err
	}
	var failed bool
	for _, d := range docs {
		if d.Err != nil {
			logrus.Errorln(d.Err)
			failed = true
		}
	}
	if f.outputs {
		out, err := p.WriteOutputs(docs)
		if err != nil {
			return err
		}
		for _, fp := range out {
			logrus.Infoln("Output:", fp)
		}
	}
	if p.Config.Archive != "" {
		zpath, err := p.WriteArchive(ctx, docs)
		if err != nil {
			return err
		}
		logrus.Infoln("Archive:", zpath)
	} else if !f.outputs {
		return errors.New("no archive filename")
	}
	if failed {
		return errFailed
	}
	return nil
}

func (a *app) archiveCommand() *cobra.Command {
	var f archiveFlags
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Convert every document in a project and archive the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.archive(cmd.Context(), &f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.dir, "dir", ".", "project directory")
	fl.StringVar(&f.config, "config", project.DefaultConfig, "project configuration file")
	fl.BoolVar(&f.outputs, "outputs", false, "also write each document to the output directory")
	return cmd
}

func (a *app) replCommand() *cobra.Command {
	var autobeam bool
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Convert LilyPond interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(cmd.OutOrStdout(), autobeam)
		},
	}
	cmd.Flags().BoolVar(&autobeam, "autobeam", false, "add beams to short notes")
	return cmd
}

func newCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "lymei",
		Short:             "Convert LilyPond to Lychee-MEI",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&a.logLevel, "log-level", "info", "log level")
	pf.StringVar(&a.envFile, "env", ".env", "environment file, loaded if it exists")
	cmd.AddCommand(a.convertCommand(), a.archiveCommand(), a.replCommand())
	return cmd
}

func mainE() error {
	a := app{stdin: os.Stdin}
	err := newCommand(&a).ExecuteContext(context.Background())
	a.reporter.Flush(2 * time.Second)
	return err
}

func main() {
	if err := mainE(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
