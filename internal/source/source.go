package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labrasa/salesdash/internal/config"
	"github.com/labrasa/salesdash/internal/models"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("source")

// ErrUnavailable means no export could be obtained.
var ErrUnavailable = errors.New("sales export unavailable")

// Source yields the raw sales export table.
type Source interface {
	Fetch(ctx context.Context) (*models.Table, error)
	Name() string
}

// FileSource reads one export file.
type FileSource struct {
	Path string
}

func (s *FileSource) Name() string { return "file:" + s.Path }

func (s *FileSource) Fetch(ctx context.Context) (*models.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := ReadExport(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	log.Infof("read %d rows from %s", t.Len(), s.Path)
	return t, nil
}

// DirectorySource reads the most recently modified export in a directory.
type DirectorySource struct {
	Dir string
}

func (s *DirectorySource) Name() string { return "directory:" + s.Dir }

func (s *DirectorySource) Fetch(ctx context.Context) (*models.Table, error) {
	path, err := LatestExport(s.Dir)
	if err != nil {
		return nil, err
	}
	return (&FileSource{Path: path}).Fetch(ctx)
}

// LatestExport returns the newest .xlsx or .csv file in dir.
func LatestExport(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var latest string
	var latestMod time.Time
	for _, e := range entries {
		if e.IsDir() || !isExport(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestMod) {
			latest = filepath.Join(dir, e.Name())
			latestMod = info.ModTime()
		}
	}
	if latest == "" {
		return "", fmt.Errorf("%w: no export found in %s", ErrUnavailable, dir)
	}
	return latest, nil
}

func isExport(name string) bool {
	// browsers leave partial downloads and lock files next to the real export
	if strings.HasPrefix(name, "~$") || strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".csv":
		return true
	}
	return false
}

// New builds the source described by cfg.
func New(cfg config.SourceConfig) (Source, error) {
	switch cfg.Kind {
	case "file":
		return &FileSource{Path: cfg.Path}, nil
	case "directory":
		return &DirectorySource{Dir: cfg.Path}, nil
	case "scraper":
		if cfg.Command == "" {
			return nil, fmt.Errorf("source.command is required for the scraper source")
		}
		return &ScraperSource{
			Command: cfg.Command,
			Args:    cfg.Args,
			Dir:     cfg.Path,
			User:    cfg.User,
			Pass:    cfg.Password,
			Timeout: cfg.SessionTimeout,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported source kind: %s", cfg.Kind)
	}
}
