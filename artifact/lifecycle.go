package artifact

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// RetentionConfig controls how long run directories are kept.
type RetentionConfig struct {
	// RetentionDays is how long runs are kept before deletion.
	// Zero disables deletion.
	RetentionDays int

	// ArchiveDays is how long runs are kept uncompressed before
	// being packed into a tar.gz archive. Zero disables archival.
	ArchiveDays int

	// KeepFailed prevents failed runs from being deleted, so they
	// stay available for debugging past the retention window.
	KeepFailed bool

	// ArchiveDir overrides the archive location. Defaults to
	// <base>/archive.
	ArchiveDir string
}

// Lifecycle manages retention and archival of run directories.
type Lifecycle struct {
	baseDir string
	config  RetentionConfig
}

// NewLifecycle creates a lifecycle manager over the same base
// directory the artifact Manager writes to.
func NewLifecycle(baseDir string, cfg RetentionConfig) *Lifecycle {
	if cfg.ArchiveDir == "" {
		cfg.ArchiveDir = filepath.Join(baseDir, "archive")
	}
	return &Lifecycle{baseDir: baseDir, config: cfg}
}

// runMeta is the subset of run metadata the lifecycle cares about.
type runMeta struct {
	Status  string     `json:"status"`
	EndedAt *time.Time `json:"endedAt,omitempty"`
}

// CleanupReport summarizes a cleanup pass.
type CleanupReport struct {
	Scanned  int `json:"scanned"`
	Archived int `json:"archived"`
	Deleted  int `json:"deleted"`
	Kept     int `json:"kept"`
	Errors   int `json:"errors"`
}

// Cleanup archives and deletes run directories according to the
// retention config. Runs still marked running are never touched.
func (l *Lifecycle) Cleanup(ctx context.Context) (CleanupReport, error) {
	var report CleanupReport

	runsDir := filepath.Join(l.baseDir, "runs")
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return report, nil
		}
		return report, fmt.Errorf("read runs dir: %w", err)
	}

	now := time.Now()
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++

		runID := entry.Name()
		meta, err := l.readMeta(runID)
		if err != nil {
			report.Errors++
			continue
		}
		if meta.Status == "running" || meta.EndedAt == nil {
			report.Kept++
			continue
		}

		age := now.Sub(*meta.EndedAt)

		if l.config.RetentionDays > 0 && age > time.Duration(l.config.RetentionDays)*24*time.Hour {
			if l.config.KeepFailed && meta.Status == "failed" {
				report.Kept++
				continue
			}
			if err := os.RemoveAll(filepath.Join(runsDir, runID)); err != nil {
				report.Errors++
				continue
			}
			report.Deleted++
			continue
		}

		if l.config.ArchiveDays > 0 && age > time.Duration(l.config.ArchiveDays)*24*time.Hour {
			if err := l.archiveRun(runID); err != nil {
				report.Errors++
				continue
			}
			report.Archived++
			continue
		}

		report.Kept++
	}

	return report, nil
}

func (l *Lifecycle) readMeta(runID string) (runMeta, error) {
	var meta runMeta
	data, err := os.ReadFile(filepath.Join(l.baseDir, "runs", runID, "metadata.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, err
	}
	return meta, nil
}

// archiveRun packs a run directory into a tar.gz under
// <archive>/<YYYY-MM>/<runID>.tar.gz and removes the original.
func (l *Lifecycle) archiveRun(runID string) error {
	month := monthFromRunID(runID)
	archiveDir := filepath.Join(l.config.ArchiveDir, month)
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	srcDir := filepath.Join(l.baseDir, "runs", runID)
	archivePath := filepath.Join(archiveDir, runID+".tar.gz")

	f, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	err = filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(tw, src)
		return err
	})
	if err != nil {
		os.Remove(archivePath)
		return fmt.Errorf("archive run %s: %w", runID, err)
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}

	return os.RemoveAll(srcDir)
}

// Restore unpacks an archived run back into the runs directory.
func (l *Lifecycle) Restore(runID string) error {
	archivePath, err := l.findArchive(runID)
	if err != nil {
		return err
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("read archive: %w", err)
	}
	defer gz.Close()

	destDir := filepath.Join(l.baseDir, "runs", runID)
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read archive: %w", err)
		}

		// Reject entries that would escape the destination.
		target := filepath.Join(destDir, filepath.FromSlash(hdr.Name))
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes run dir: %s", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("restore dir: %w", err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("restore dir: %w", err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return fmt.Errorf("restore file: %w", err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return fmt.Errorf("restore file: %w", err)
			}
			out.Close()
		}
	}

	return os.Remove(archivePath)
}

func (l *Lifecycle) findArchive(runID string) (string, error) {
	direct := filepath.Join(l.config.ArchiveDir, monthFromRunID(runID), runID+".tar.gz")
	if _, err := os.Stat(direct); err == nil {
		return direct, nil
	}

	months, err := os.ReadDir(l.config.ArchiveDir)
	if err != nil {
		return "", fmt.Errorf("%w: archive for %s", ErrNotFound, runID)
	}
	for _, month := range months {
		if !month.IsDir() {
			continue
		}
		candidate := filepath.Join(l.config.ArchiveDir, month.Name(), runID+".tar.gz")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: archive for %s", ErrNotFound, runID)
}

// ArchiveInfo describes a stored run archive.
type ArchiveInfo struct {
	RunID string    `json:"runId"`
	Month string    `json:"month"`
	Size  int64     `json:"size"`
	Time  time.Time `json:"time"`
}

// ListArchives returns all archived runs, newest month first.
func (l *Lifecycle) ListArchives() ([]ArchiveInfo, error) {
	months, err := os.ReadDir(l.config.ArchiveDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read archive dir: %w", err)
	}

	var archives []ArchiveInfo
	for _, month := range months {
		if !month.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(l.config.ArchiveDir, month.Name()))
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".tar.gz") {
				continue
			}
			fi, err := entry.Info()
			if err != nil {
				continue
			}
			archives = append(archives, ArchiveInfo{
				RunID: strings.TrimSuffix(entry.Name(), ".tar.gz"),
				Month: month.Name(),
				Size:  fi.Size(),
				Time:  fi.ModTime(),
			})
		}
	}

	sort.Slice(archives, func(i, j int) bool {
		if archives[i].Month != archives[j].Month {
			return archives[i].Month > archives[j].Month
		}
		return archives[i].RunID > archives[j].RunID
	})
	return archives, nil
}

// CleanupArchives deletes archives older than the given number of days.
func (l *Lifecycle) CleanupArchives(days int) (int, error) {
	if days <= 0 {
		return 0, nil
	}
	archives, err := l.ListArchives()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	deleted := 0
	for _, a := range archives {
		if a.Time.After(cutoff) {
			continue
		}
		path := filepath.Join(l.config.ArchiveDir, a.Month, a.RunID+".tar.gz")
		if err := os.Remove(path); err == nil {
			deleted++
		}
	}
	return deleted, nil
}

// DiskUsage reports total bytes used by runs and archives.
func (l *Lifecycle) DiskUsage() (runs, archives int64, err error) {
	runs, err = dirSize(filepath.Join(l.baseDir, "runs"))
	if err != nil {
		return 0, 0, err
	}
	archives, err = dirSize(l.config.ArchiveDir)
	if err != nil {
		return 0, 0, err
	}
	return runs, archives, nil
}

// monthFromRunID extracts the YYYY-MM prefix from a date-prefixed run
// ID like 2026-01-15-alert-x7k2mq. Falls back to the current month.
func monthFromRunID(runID string) string {
	if len(runID) >= 7 {
		candidate := runID[:7]
		if _, err := time.Parse("2006-01", candidate); err == nil {
			return candidate
		}
	}
	return time.Now().Format("2006-01")
}

func dirSize(dir string) (int64, error) {
	var size int64
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	if os.IsNotExist(err) {
		return 0, nil
	}
	return size, err
}
