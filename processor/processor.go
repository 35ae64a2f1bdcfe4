package processor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"smoothie-happy/board"
	"smoothie-happy/clients"
	"smoothie-happy/models"
)

type boardClient interface {
	ListFiles(ctx context.Context, dir string, refresh bool) ([]models.FileEntry, error)
	Mkdir(ctx context.Context, dir string) error
	Upload(ctx context.Context, target string, data []byte, onProgress clients.ProgressFunc) (models.FileEntry, error)
}

// ErrInvalidTarget is returned for sync targets outside of the SD card
var ErrInvalidTarget = errors.New("sync target must be on the sd card")

// Processor pushes a local folder to the board SD card
type Processor struct {
	board  boardClient
	source fs.FS
	log    logrus.FieldLogger
}

// Dependencies configuration for creating a processor
type Dependencies struct {
	Board  boardClient
	Source fs.FS
	Log    logrus.FieldLogger
}

// Config holds configuration for the synchronization processor
type Config struct {
	TargetPath string // board folder receiving the files, below /sd
	Refresh    bool   // list the board again instead of trusting the cache
	OnProgress clients.ProgressFunc
}

// SyncStats synchronization statistics
type SyncStats struct {
	TotalFiles     int
	UploadedFiles  int
	SkippedFiles   int
	ErrorFiles     int
	CreatedFolders int
	UploadedBytes  int64
}

// NewProcessor creates a new instance of synchronization processor
func NewProcessor(d *Dependencies) *Processor {
	log := d.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Processor{
		board:  d.Board,
		source: d.Source,
		log:    log,
	}
}

// Main uploads every file of the source missing on the board or whose
// size differs, creating folders as needed. Files that fail are counted
// and skipped.
func (p *Processor) Main(ctx context.Context, cfg Config) (*SyncStats, error) {
	target := models.NormalizePath(cfg.TargetPath)
	if target != board.SDRoot && !models.IsDescendant(board.SDRoot, target) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTarget, target)
	}

	p.log.Infof("Reading board file structure for %s", target)
	remote, err := p.remoteFiles(ctx, target, cfg.Refresh)
	if err != nil {
		p.log.Infof("Target folder %s doesn't exist, will create it", target)
		if createErr := p.createFolderChain(ctx, target); createErr != nil {
			return nil, fmt.Errorf("failed to create target folder chain: %w", createErr)
		}
		remote = map[string]models.FileEntry{}
	}

	stats := &SyncStats{}
	err = fs.WalkDir(p.source, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if name == "." {
			return nil
		}

		dst := models.Join(target, name)
		if d.IsDir() {
			if e, ok := remote[dst]; ok && e.IsDir() {
				return nil
			}
			p.log.Infof("Creating folder %s", dst)
			if err := p.board.Mkdir(ctx, dst); err != nil {
				return fmt.Errorf("failed to create folder %s: %w", dst, err)
			}
			stats.CreatedFolders++
			return nil
		}

		stats.TotalFiles++
		p.syncFile(ctx, name, dst, remote, cfg, stats)
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("synchronization of %s failed: %w", target, err)
	}

	p.log.Infof("Synchronization completed! Files processed: %d, uploaded: %d (%s), skipped: %d, errors: %d",
		stats.TotalFiles, stats.UploadedFiles, humanize.Bytes(uint64(stats.UploadedBytes)), stats.SkippedFiles, stats.ErrorFiles)

	return stats, nil
}

// syncFile uploads one source file unless the board has it with the same size
func (p *Processor) syncFile(ctx context.Context, name, dst string, remote map[string]models.FileEntry, cfg Config, stats *SyncStats) {
	info, err := fs.Stat(p.source, name)
	if err != nil {
		p.log.Errorf("Error reading %s: %v", name, err)
		stats.ErrorFiles++
		return
	}

	if e, ok := remote[dst]; ok && !e.IsDir() && e.Size == info.Size() {
		p.log.Debugf("File %s is up to date, skipping", dst)
		stats.SkippedFiles++
		return
	}

	data, err := fs.ReadFile(p.source, name)
	if err != nil {
		p.log.Errorf("Error reading %s: %v", name, err)
		stats.ErrorFiles++
		return
	}

	if _, err := p.board.Upload(ctx, dst, data, cfg.OnProgress); err != nil {
		p.log.Errorf("Error uploading %s: %v", dst, err)
		stats.ErrorFiles++
		return
	}

	p.log.Infof("Uploaded %s (%s)", dst, humanize.Bytes(uint64(len(data))))
	stats.UploadedFiles++
	stats.UploadedBytes += int64(len(data))
}

// remoteFiles indexes the board files below dir by path
func (p *Processor) remoteFiles(ctx context.Context, dir string, refresh bool) (map[string]models.FileEntry, error) {
	entries, err := p.board.ListFiles(ctx, dir, refresh)
	if err != nil {
		return nil, err
	}

	files := make(map[string]models.FileEntry, len(entries))
	for _, e := range entries {
		files[e.Path] = e
	}
	return files, nil
}

// createFolderChain creates dir and its missing parents, /sd excluded
func (p *Processor) createFolderChain(ctx context.Context, dir string) error {
	if dir == board.SDRoot || dir == "/" {
		return nil
	}

	parent := path.Dir(dir)
	entries, err := p.board.ListFiles(ctx, parent, false)
	if err != nil {
		if createErr := p.createFolderChain(ctx, parent); createErr != nil {
			return fmt.Errorf("failed to create parent folder %s: %w", parent, createErr)
		}
	}
	for _, e := range entries {
		if e.Path == dir && e.IsDir() {
			return nil
		}
	}

	p.log.Infof("Creating folder: %s", dir)
	if err := p.board.Mkdir(ctx, dir); err != nil {
		return fmt.Errorf("failed to create folder %s: %w", dir, err)
	}
	return nil
}
