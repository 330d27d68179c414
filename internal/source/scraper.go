package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/labrasa/salesdash/internal/models"
)

// Environment passed to the scraper command.
const (
	EnvDownloadDir = "SAIPOS_DOWNLOAD_DIR"
	EnvUser        = "SAIPOS_USER"
	EnvPassword    = "SAIPOS_PASSWORD"
)

// ScraperSource runs an external browser-automation command that logs into
// the POS back office and downloads the "Vendas por período" export into Dir.
// The command receives credentials and the download directory through the
// environment and must exit 0 once the file is written.
type ScraperSource struct {
	Command string
	Args    []string
	Dir     string
	User    string
	Pass    string
	Timeout time.Duration
}

func (s *ScraperSource) Name() string { return "scraper:" + s.Command }

func (s *ScraperSource) Fetch(ctx context.Context) (*models.Table, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := clearExports(s.Dir); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, s.Command, s.Args...)
	cmd.Env = append(os.Environ(),
		EnvDownloadDir+"="+s.Dir,
		EnvUser+"="+s.User,
		EnvPassword+"="+s.Pass,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	log.Infof("running export scraper %s", s.Command)
	started := time.Now()
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: scraper timed out after %s", ErrUnavailable, s.Timeout)
		}
		return nil, fmt.Errorf("%w: scraper failed: %v: %s", ErrUnavailable, err, bytes.TrimSpace(stderr.Bytes()))
	}
	log.Infof("scraper finished in %s", time.Since(started).Round(time.Millisecond))

	return (&DirectorySource{Dir: s.Dir}).Fetch(ctx)
}

// clearExports removes previous downloads so a stale file is never re-read.
func clearExports(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !isExport(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
