// Package report sends conversion timings and errors to Sentry.
package report

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"moria.us/lymei/build/convert"
)

// DSNVariable is the environment variable containing the Sentry DSN.
const DSNVariable = "SENTRY_DSN"

// A Reporter records conversions. A nil or disabled Reporter does nothing.
type Reporter struct {
	hub *sentry.Hub
}

// New creates a reporter from the given client options. If the options have
// no DSN, the reporter is disabled.
func New(opts sentry.ClientOptions) (*Reporter, error) {
	if opts.Dsn == "" {
		return &Reporter{}, nil
	}
	if opts.TracesSampleRate == 0 {
		opts.EnableTracing = true
		opts.TracesSampleRate = 1
	}
	c, err := sentry.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	return &Reporter{hub: sentry.NewHub(c, sentry.NewScope())}, nil
}

// FromEnv creates a reporter using the DSN in the environment.
func FromEnv(release string) (*Reporter, error) {
	return New(sentry.ClientOptions{
		Dsn:     os.Getenv(DSNVariable),
		Release: release,
	})
}

// LoadEnv loads environment variables from the given files, if they exist.
// Variables already set are not changed.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("could not load %q: %w", f, err)
		}
		logrus.Debugln("Loaded environment:", f)
	}
	return nil
}

// Enabled returns true if reports are sent.
func (r *Reporter) Enabled() bool {
	return r != nil && r.hub != nil
}

func (r *Reporter) context(ctx context.Context) context.Context {
	if sentry.HasHubOnContext(ctx) {
		return ctx
	}
	return sentry.SetHubOnContext(ctx, r.hub)
}

// RecordConversion records the conversion of the named document.
func (r *Reporter) RecordConversion(ctx context.Context, name string, d time.Duration, ok bool) {
	if !r.Enabled() {
		return
	}
	span := sentry.StartSpan(r.context(ctx), "lymei.convert", sentry.WithTransactionName(name))
	span.StartTime = time.Now().Add(-d)
	span.SetTag("success", fmt.Sprintf("%t", ok))
	span.SetData("duration_ms", d.Milliseconds())
	span.SetData("success", ok)
	if ok {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusInternalError
	}
	span.Description = fmt.Sprintf("Convert: %s", name)
	span.Finish()
}

// CaptureError reports an error.
func (r *Reporter) CaptureError(err error) {
	if !r.Enabled() || err == nil {
		return
	}
	r.hub.CaptureException(err)
}

// Flush waits until pending reports are sent or the timeout expires.
func (r *Reporter) Flush(timeout time.Duration) bool {
	if !r.Enabled() {
		return true
	}
	return r.hub.Flush(timeout)
}

// Listener returns a conversion listener which reports the conversion of the
// named document.
func (r *Reporter) Listener(ctx context.Context, name string) convert.Listener {
	return &listener{ctx: ctx, reporter: r, name: name}
}

type listener struct {
	ctx      context.Context
	reporter *Reporter
	name     string
	start    time.Time
}

func (l *listener) ConversionStarted() {
	l.start = time.Now()
}

func (l *listener) ConversionFinished(r *convert.Result) {
	l.reporter.RecordConversion(l.ctx, l.name, time.Since(l.start), true)
}

func (l *listener) ConversionFailed(err error) {
	l.reporter.RecordConversion(l.ctx, l.name, time.Since(l.start), false)
	l.reporter.CaptureError(fmt.Errorf("%s: %w", l.name, err))
}
