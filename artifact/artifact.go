package artifact

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned when a requested artifact does not exist.
var ErrNotFound = errors.New("artifact not found")

// Standard artifact names written by the pipeline. Every run directory
// uses the same names so tooling can find them without listing.
const (
	NameAlert      = "alert.json"       // inbound alert message as received
	NameExtraction = "extraction.json"  // ticket info produced by extraction
	NameTicket     = "ticket.json"      // created ticket as returned by the tracker
	NameResponse   = "response.txt"     // final user-facing response text
	NameEvalReport = "eval-report.json" // evaluation results for golden runs
)

// Type categorizes artifact content for storage decisions.
type Type string

const (
	TypeJSON     Type = "json"
	TypeText     Type = "text"
	TypeMarkdown Type = "markdown"
	TypeBinary   Type = "binary"
)

// KnownTypes maps file extensions to artifact types.
var KnownTypes = map[string]Type{
	".json": TypeJSON,
	".txt":  TypeText,
	".md":   TypeMarkdown,
	".log":  TypeText,
	".gz":   TypeBinary,
}

// InferType guesses the artifact type from its file extension.
func InferType(name string) Type {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := KnownTypes[ext]; ok {
		return t
	}
	return TypeBinary
}

// Compressible reports whether the type benefits from gzip.
func (t Type) Compressible() bool {
	switch t {
	case TypeJSON, TypeText, TypeMarkdown:
		return true
	}
	return false
}

// Info describes a stored artifact.
type Info struct {
	Name       string    `json:"name"`
	Type       Type      `json:"type"`
	Size       int64     `json:"size"`
	Compressed bool      `json:"compressed"`
	ModTime    time.Time `json:"modTime"`
}

// Config controls artifact storage.
type Config struct {
	// BaseDir is the root directory for all runs. Defaults to ".alertflow".
	BaseDir string

	// CompressAbove is the size in bytes above which compressible
	// artifacts are gzipped. Defaults to 10KB. Zero means default,
	// negative disables compression.
	CompressAbove int64
}

const defaultCompressAbove = 10 * 1024

// Manager stores per-run artifacts on disk under
// <base>/runs/<runID>/artifacts/.
type Manager struct {
	baseDir       string
	compressAbove int64
}

// NewManager creates a Manager with the given config.
func NewManager(cfg Config) *Manager {
	if cfg.BaseDir == "" {
		cfg.BaseDir = ".alertflow"
	}
	if cfg.CompressAbove == 0 {
		cfg.CompressAbove = defaultCompressAbove
	}
	return &Manager{
		baseDir:       cfg.BaseDir,
		compressAbove: cfg.CompressAbove,
	}
}

// BaseDir returns the root directory for all runs.
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// RunDir returns the directory for a run.
func (m *Manager) RunDir(runID string) string {
	return filepath.Join(m.baseDir, "runs", runID)
}

// ArtifactDir returns the artifacts directory for a run.
func (m *Manager) ArtifactDir(runID string) string {
	return filepath.Join(m.RunDir(runID), "artifacts")
}

// EnsureRunDir creates the run directory structure.
func (m *Manager) EnsureRunDir(runID string) error {
	if err := os.MkdirAll(m.ArtifactDir(runID), 0755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}
	return nil
}

// Save stores an artifact for a run. Compressible artifacts larger
// than the configured threshold are gzipped transparently.
func (m *Manager) Save(runID, name string, data []byte) error {
	if err := m.EnsureRunDir(runID); err != nil {
		return err
	}

	path := filepath.Join(m.ArtifactDir(runID), name)
	typ := InferType(name)

	if typ.Compressible() && m.compressAbove > 0 && int64(len(data)) > m.compressAbove {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(data); err != nil {
			return fmt.Errorf("compress artifact: %w", err)
		}
		if err := gz.Close(); err != nil {
			return fmt.Errorf("compress artifact: %w", err)
		}
		if err := os.WriteFile(path+".gz", buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("write artifact: %w", err)
		}
		// Drop any stale uncompressed variant from a previous save.
		os.Remove(path)
		return nil
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	os.Remove(path + ".gz")
	return nil
}

// SaveJSON marshals v with indentation and stores it under name.
func (m *Manager) SaveJSON(runID, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	return m.Save(runID, name, data)
}

// Load reads an artifact, decompressing if needed.
func (m *Manager) Load(runID, name string) ([]byte, error) {
	path := filepath.Join(m.ArtifactDir(runID), name)

	if data, err := os.ReadFile(path + ".gz"); err == nil {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decompress artifact: %w", err)
		}
		defer gz.Close()
		out, err := io.ReadAll(gz)
		if err != nil {
			return nil, fmt.Errorf("decompress artifact: %w", err)
		}
		return out, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, runID, name)
		}
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return data, nil
}

// LoadJSON reads an artifact and unmarshals it into v.
func (m *Manager) LoadJSON(runID, name string, v any) error {
	data, err := m.Load(runID, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal artifact: %w", err)
	}
	return nil
}

// Has reports whether an artifact exists.
func (m *Manager) Has(runID, name string) bool {
	path := filepath.Join(m.ArtifactDir(runID), name)
	if _, err := os.Stat(path); err == nil {
		return true
	}
	if _, err := os.Stat(path + ".gz"); err == nil {
		return true
	}
	return false
}

// Delete removes an artifact.
func (m *Manager) Delete(runID, name string) error {
	path := filepath.Join(m.ArtifactDir(runID), name)
	errPlain := os.Remove(path)
	errGz := os.Remove(path + ".gz")
	if os.IsNotExist(errPlain) && os.IsNotExist(errGz) {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, runID, name)
	}
	return nil
}

// List returns info for all artifacts of a run, sorted by name.
// Compressed artifacts are listed under their logical name.
func (m *Manager) List(runID string) ([]Info, error) {
	dir := m.ArtifactDir(runID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	var infos []Info
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		name := entry.Name()
		compressed := strings.HasSuffix(name, ".gz")
		if compressed {
			name = strings.TrimSuffix(name, ".gz")
		}
		infos = append(infos, Info{
			Name:       name,
			Type:       InferType(name),
			Size:       fi.Size(),
			Compressed: compressed,
			ModTime:    fi.ModTime(),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos, nil
}

// GetInfo returns info for a single artifact.
func (m *Manager) GetInfo(runID, name string) (Info, error) {
	infos, err := m.List(runID)
	if err != nil {
		return Info{}, err
	}
	for _, info := range infos {
		if info.Name == name {
			return info, nil
		}
	}
	return Info{}, fmt.Errorf("%w: %s/%s", ErrNotFound, runID, name)
}

// ============================================================================
// Context integration
// ============================================================================

type artifactContextKey string

const managerKey artifactContextKey = "artifact-manager"

// WithManager returns a context carrying the artifact manager.
func WithManager(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, managerKey, m)
}

// ManagerFromContext retrieves the artifact manager, or nil if absent.
func ManagerFromContext(ctx context.Context) *Manager {
	m, _ := ctx.Value(managerKey).(*Manager)
	return m
}
