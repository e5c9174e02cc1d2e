package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/blake2b"

	"moria.us/lymei/build/mei"
	"moria.us/lymei/build/project"
	"moria.us/lymei/build/report"
	"moria.us/lymei/build/watcher"
)

const (
	textType = "text/plain; charset=UTF-8"
	jsonType = "application/json"
	meiType  = "application/mei+xml"
)

type contextKey struct{}

func (contextKey) String() string {
	return "devserver context key"
}

type handler struct {
	baseDir string
	docs    docs
}

func getHandler(ctx context.Context) *handler {
	val := ctx.Value(contextKey{})
	if val == nil {
		panic("missing context key")
	}
	v, ok := val.(*handler)
	if !ok {
		panic("context key has wrong value")
	}
	return v
}

func (h *handler) watch(ctx context.Context, config string, opts *watcher.Options) {
	ch, err := watcher.WatchWith(ctx, h.baseDir, config, opts)
	if err != nil {
		logrus.Fatalln("watcher.Watch:", err)
	}
	h.docs.watch(ctx, ch)
}

func logResponse(r *http.Request, status int, msg string) {
	if status >= 400 {
		if msg == "" {
			msg = http.StatusText(status)
		}
		logrus.Errorln(status, r.URL, msg)
	} else if msg == "" {
		logrus.Infoln(status, r.URL)
	} else {
		logrus.Infoln(status, r.URL, msg)
	}
}

func serveData(w http.ResponseWriter, r *http.Request, status int, ctype string, data []byte) {
	hdr := w.Header()
	hdr.Set("Content-Type", ctype)
	hdr.Set("Content-Length", strconv.Itoa(len(data)))
	hdr.Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	w.Write(data)
}

func serveStatus(w http.ResponseWriter, r *http.Request, status int, msg string) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%d %s\n", status, http.StatusText(status))
	if msg != "" {
		fmt.Fprintf(&b, "%s\n", msg)
	}
	serveData(w, r, status, textType, b.Bytes())
}

func serveError(w http.ResponseWriter, r *http.Request, a ...interface{}) {
	const status = http.StatusInternalServerError
	msg := fmt.Sprint(a...)
	logResponse(r, status, msg)
	serveStatus(w, r, status, msg)
}

func serveNotFound(w http.ResponseWriter, r *http.Request) {
	logResponse(r, http.StatusNotFound, "")
	serveStatus(w, r, http.StatusNotFound, fmt.Sprintf("Page not found: %q", r.URL))
}

// etag returns a strong entity tag for the content.
func etag(data []byte) string {
	sum := blake2b.Sum256(data)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

// serveContent serves generated content, or 304 if the client has it.
func serveContent(w http.ResponseWriter, r *http.Request, ctype string, data []byte) {
	tag := etag(data)
	w.Header().Set("ETag", tag)
	if r.Header.Get("If-None-Match") == tag {
		logResponse(r, http.StatusNotModified, "")
		w.WriteHeader(http.StatusNotModified)
		return
	}
	logResponse(r, http.StatusOK, "")
	serveData(w, r, http.StatusOK, ctype, data)
}

func getState(r *http.Request) *docState {
	ctx := r.Context()
	h := getHandler(ctx)
	d, err := h.docs.getState(ctx)
	if err != nil {
		// ctx canceled.
		return nil
	}
	return d
}

func serveIndex(w http.ResponseWriter, r *http.Request) {
	d := getState(r)
	if d == nil {
		return
	}
	if d.project == nil {
		serveError(w, r, "Could not load project: ", d.err)
		return
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s\n\n", d.project.Config.Title)
	for _, doc := range d.list {
		if doc.Err != nil {
			fmt.Fprintf(&b, "%s: error: %v\n", doc.Name, doc.Err)
			continue
		}
		fmt.Fprintf(&b, "%s: ok, %d warnings: /doc/%s.mei /doc/%s.json\n",
			doc.Name, len(doc.Result.Diagnostics), doc.Name, doc.Name)
	}
	logResponse(r, http.StatusOK, "")
	serveData(w, r, http.StatusOK, textType, b.Bytes())
}

func serveDocument(w http.ResponseWriter, r *http.Request) {
	d := getState(r)
	if d == nil {
		return
	}
	file := chi.URLParam(r, "file")
	ext := path.Ext(file)
	doc := d.byName[file[:len(file)-len(ext)]]
	if doc == nil {
		serveNotFound(w, r)
		return
	}
	if doc.Err != nil {
		serveError(w, r, "Could not convert: ", doc.Err)
		return
	}
	var (
		data  []byte
		ctype string
		err   error
	)
	switch ext {
	case ".mei":
		data, err = mei.MarshalXML(doc.Result.Section, r.URL.Query().Get("charset"))
		ctype = meiType
	case ".json":
		data, err = mei.MarshalJSON(doc.Result.Section)
		ctype = jsonType
	default:
		serveNotFound(w, r)
		return
	}
	if err != nil {
		serveError(w, r, err)
		return
	}
	serveContent(w, r, ctype, data)
}

type diagnostic struct {
	Document string `json:"document"`
	Line     int    `json:"line,omitempty"`
	Col      int    `json:"col,omitempty"`
	Message  string `json:"message"`
	Fatal    bool   `json:"fatal,omitempty"`
}

func serveDiagnostics(w http.ResponseWriter, r *http.Request) {
	d := getState(r)
	if d == nil {
		return
	}
	ds := []*diagnostic{}
	for _, doc := range d.list {
		if doc.Err != nil {
			ds = append(ds, &diagnostic{
				Document: doc.Name,
				Message:  doc.Err.Error(),
				Fatal:    true,
			})
			continue
		}
		for _, dg := range doc.Result.Diagnostics {
			ds = append(ds, &diagnostic{
				Document: doc.Name,
				Line:     dg.Line,
				Col:      dg.Col,
				Message:  dg.Message,
			})
		}
	}
	data, err := json.Marshal(ds)
	if err != nil {
		serveError(w, r, err)
		return
	}
	logResponse(r, http.StatusOK, "")
	serveData(w, r, http.StatusOK, jsonType, data)
}

func newRouter() http.Handler {
	mx := chi.NewMux()
	mx.Get("/", serveIndex)
	mx.Get("/doc/{file}", serveDocument)
	mx.Get("/diagnostics", serveDiagnostics)
	mx.Get("/socket", serveSocket)
	mx.NotFound(serveNotFound)
	return mx
}

func mainE() error {
	fHost := pflag.String("host", "localhost", "host to serve from, or * to bind to all local addresses")
	fPort := pflag.Int("port", 9018, "port to serve from")
	fDir := pflag.String("dir", ".", "project directory")
	fConfig := pflag.String("config", project.DefaultConfig, "project configuration file")
	fLogLevel := pflag.String("log-level", "info", "log level")
	pflag.Parse()
	if args := pflag.Args(); len(args) != 0 {
		return fmt.Errorf("unexpected argument: %q", args[0])
	}
	level, err := logrus.ParseLevel(*fLogLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	baseDir, err := filepath.Abs(*fDir)
	if err != nil {
		return err
	}
	if err := report.LoadEnv(filepath.Join(baseDir, ".env")); err != nil {
		return err
	}
	rp, err := report.FromEnv("lymei-devserver")
	if err != nil {
		return err
	}

	ctx := context.Background()
	log := logrus.StandardLogger()
	host := *fHost
	var addrs []net.IPAddr
	if host == "*" {
		addrs = []net.IPAddr{{IP: net.IPv6zero}}
		host = "localhost"
	} else {
		rslv := net.DefaultResolver
		addrs, err = rslv.LookupIPAddr(ctx, host)
		if err != nil {
			return fmt.Errorf("could not look up host: %v", err)
		}
		if host == "" {
			host = "localhost"
		}
	}
	h := &handler{baseDir: baseDir}
	go h.watch(ctx, *fConfig, &watcher.Options{Reporter: rp})
	ctx = context.WithValue(ctx, contextKey{}, h)
	s := http.Server{
		Handler:     newRouter(),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}
	var root *url.URL
	for _, addr := range addrs {
		ta := net.TCPAddr{
			IP:   addr.IP,
			Zone: addr.Zone,
			Port: *fPort,
		}
		l, err := net.ListenTCP("tcp", &ta)
		if err != nil {
			return err
		}
		if root == nil {
			root = &url.URL{
				Scheme: "http",
				Host:   net.JoinHostPort(host, strconv.Itoa(*fPort)),
				Path:   "/",
			}
			log.Infoln("Serving on:", root)
		}
		go func(l *net.TCPListener) {
			err := s.Serve(l)
			log.Fatalln("serve:", err)
		}(l)
	}
	if root == nil {
		return errors.New("no address to serve on")
	}
	select {}
}

func main() {
	if err := mainE(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
