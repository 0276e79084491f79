package templates

import (
	"bytes"
	"context"
	"fmt"
	htmltmpl "html/template"
	"io/fs"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/Masterminds/sprig/v3"
)

// Config controls where templates come from.
// Dir: when non-empty, templates are read from this directory (<id>.tmpl).
// Reload: when true and Dir is set, templates are reparsed on every render.
type Config struct {
	Dir    string
	Reload bool
}

// Rendered is the materialized content of an email template.
type Rendered struct {
	Subject   string
	EmailText string
	EmailHTML string
}

// Handle ties a template id to the data type it expects.
type Handle[T any] struct {
	id string
}

// Expect creates a typed handle for a template id such as "auth.register_code".
func Expect[T any](id string) Handle[T] { return Handle[T]{id: id} }

func (h Handle[T]) ID() string { return h.id }
func (h Handle[T]) DataType() reflect.Type {
	var zero *T
	return reflect.TypeOf(zero).Elem()
}

// Engine compiles and renders templates, caching them unless reloading from disk.
type Engine struct {
	cfg   Config
	log   *slog.Logger
	fs    fs.FS
	mu    sync.RWMutex
	cache map[string]*compiled
}

type compiled struct {
	text *texttmpl.Template
	html *htmltmpl.Template
}

func NewEngine(cfg Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	var source fs.FS = EmbeddedFS
	prefix := "files"
	if cfg.Dir != "" {
		source = os.DirFS(cfg.Dir)
		prefix = "."
	}
	sub, err := fs.Sub(source, prefix)
	if err != nil {
		log.Error("template source unavailable", "dir", cfg.Dir, "error", err)
		sub = source
	}
	return &Engine{
		cfg:   cfg,
		log:   log,
		fs:    sub,
		cache: make(map[string]*compiled),
	}
}

// Render renders a template with data of the type its handle declares.
func Render[T any](ctx context.Context, e *Engine, h Handle[T], data T) (Rendered, error) {
	return e.RenderAny(ctx, h.ID(), data)
}

// RenderAny renders the subject, email_text and email_html blocks of template id.
// Blocks the template does not define are left empty.
func (e *Engine) RenderAny(_ context.Context, id string, data any) (Rendered, error) {
	c, err := e.compiled(id)
	if err != nil {
		return Rendered{}, err
	}

	var out Rendered
	for name, dst := range map[string]*string{"subject": &out.Subject, "email_text": &out.EmailText} {
		if c.text.Lookup(name) == nil {
			continue
		}
		var buf bytes.Buffer
		if err := c.text.ExecuteTemplate(&buf, name, data); err != nil {
			return Rendered{}, fmt.Errorf("render %s: %w", name, err)
		}
		*dst = strings.TrimSpace(buf.String())
	}
	if c.html.Lookup("email_html") != nil {
		var buf bytes.Buffer
		if err := c.html.ExecuteTemplate(&buf, "email_html", data); err != nil {
			return Rendered{}, fmt.Errorf("render email_html: %w", err)
		}
		out.EmailHTML = strings.TrimSpace(buf.String())
	}
	return out, nil
}

func (e *Engine) compiled(id string) (*compiled, error) {
	if e.cfg.Dir != "" && e.cfg.Reload {
		return e.parse(id)
	}

	e.mu.RLock()
	c, ok := e.cache[id]
	e.mu.RUnlock()
	if ok {
		return c, nil
	}

	c, err := e.parse(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.cache[id] = c
	e.mu.Unlock()
	return c, nil
}

func (e *Engine) parse(id string) (*compiled, error) {
	b, err := fs.ReadFile(e.fs, id+".tmpl")
	if err != nil {
		return nil, fmt.Errorf("read template %q: %w", id, err)
	}
	text, err := texttmpl.New(id).Option("missingkey=error").Funcs(sprig.TxtFuncMap()).Parse(string(b))
	if err != nil {
		return nil, fmt.Errorf("parse text blocks (%s): %w", id, err)
	}
	html, err := htmltmpl.New(id).Option("missingkey=error").Funcs(sprig.HtmlFuncMap()).Parse(string(b))
	if err != nil {
		return nil, fmt.Errorf("parse html block (%s): %w", id, err)
	}
	return &compiled{text: text, html: html}, nil
}
