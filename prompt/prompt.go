package prompt

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed prompts/*.txt
var embedded embed.FS

// DefaultSearchDirs are checked, in order, before falling back to the
// embedded defaults. Relative paths resolve against the working directory.
var DefaultSearchDirs = []string{
	".alertflow/prompts",
	"prompts",
}

// Loader resolves prompt templates by name. A name like "extract-system"
// maps to extract-system.txt in the first search dir that has it, or to
// the embedded copy. Parsed templates are cached.
type Loader struct {
	mu      sync.RWMutex
	dirs    []string
	cache   map[string]*template.Template
	funcMap template.FuncMap
}

// NewLoader returns a Loader with the default search dirs and template
// functions.
func NewLoader() *Loader {
	return &Loader{
		dirs:  append([]string(nil), DefaultSearchDirs...),
		cache: make(map[string]*template.Template),
		funcMap: template.FuncMap{
			"join":  strings.Join,
			"title": cases.Title(language.English).String,
			"upper": strings.ToUpper,
			"lower": strings.ToLower,
			"trim":  strings.TrimSpace,
		},
	}
}

// AddSearchDir prepends a directory to the search path so it takes
// priority over the defaults.
func (l *Loader) AddSearchDir(dir string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dirs = append([]string{dir}, l.dirs...)
	l.cache = make(map[string]*template.Template)
}

// Load renders the named template with no variables.
func (l *Loader) Load(name string) (string, error) {
	return l.LoadWithVars(name, nil)
}

// LoadWithVars renders the named template with the given variables.
func (l *Loader) LoadWithVars(name string, vars map[string]any) (string, error) {
	tmpl, err := l.getTemplate(name)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, vars); err != nil {
		return "", fmt.Errorf("rendering prompt %q: %w", name, err)
	}
	return sb.String(), nil
}

// Exists reports whether the named template can be resolved.
func (l *Loader) Exists(name string) bool {
	_, err := l.loadRaw(name)
	return err == nil
}

func (l *Loader) getTemplate(name string) (*template.Template, error) {
	l.mu.RLock()
	if tmpl, ok := l.cache[name]; ok {
		l.mu.RUnlock()
		return tmpl, nil
	}
	l.mu.RUnlock()

	raw, err := l.loadRaw(name)
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New(name).Funcs(l.funcMap).Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing prompt %q: %w", name, err)
	}

	l.mu.Lock()
	l.cache[name] = tmpl
	l.mu.Unlock()
	return tmpl, nil
}

func (l *Loader) loadRaw(name string) (string, error) {
	l.mu.RLock()
	dirs := l.dirs
	l.mu.RUnlock()

	file := name + ".txt"
	for _, dir := range dirs {
		data, err := os.ReadFile(filepath.Join(dir, file))
		if err == nil {
			return string(data), nil
		}
	}
	data, err := embedded.ReadFile("prompts/" + file)
	if err != nil {
		return "", fmt.Errorf("prompt %q not found in search dirs or embedded defaults", name)
	}
	return string(data), nil
}

// ===========================================================================
// Builder
// ===========================================================================

// Builder assembles a user prompt from labeled parts. Parts render in the
// order they were added, separated by blank lines.
type Builder struct {
	parts []string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends a raw text part.
func (b *Builder) Add(text string) *Builder {
	if text != "" {
		b.parts = append(b.parts, text)
	}
	return b
}

// AddSection appends a "## Heading" section with a body.
func (b *Builder) AddSection(heading, body string) *Builder {
	if body == "" {
		return b
	}
	b.parts = append(b.parts, fmt.Sprintf("## %s\n%s", heading, body))
	return b
}

// AddField appends a "Name: value" line, skipping empty values.
func (b *Builder) AddField(name, value string) *Builder {
	if value == "" {
		return b
	}
	b.parts = append(b.parts, fmt.Sprintf("%s: %s", name, value))
	return b
}

// AddList appends a bulleted list under a heading.
func (b *Builder) AddList(heading string, items []string) *Builder {
	if len(items) == 0 {
		return b
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n", heading)
	for _, item := range items {
		fmt.Fprintf(&sb, "- %s\n", item)
	}
	b.parts = append(b.parts, strings.TrimRight(sb.String(), "\n"))
	return b
}

// Build joins the parts into the final prompt text.
func (b *Builder) Build() string {
	return strings.Join(b.parts, "\n\n")
}

// ===========================================================================
// Context
// ===========================================================================

type serviceContextKey string

const loaderKey serviceContextKey = "prompt-loader"

// WithLoader returns a context carrying the loader.
func WithLoader(ctx context.Context, l *Loader) context.Context {
	return context.WithValue(ctx, loaderKey, l)
}

// LoaderFromContext retrieves the loader from the context, or nil.
func LoaderFromContext(ctx context.Context) *Loader {
	l, _ := ctx.Value(loaderKey).(*Loader)
	return l
}
