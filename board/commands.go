package board

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"smoothie-happy/clients"
	"smoothie-happy/decoders"
	"smoothie-happy/models"
	"smoothie-happy/protocol"
	"smoothie-happy/queue"
)

// SDRoot is the mount point of the board SD card
const SDRoot = "/sd"

var (
	// ErrUploadRejected is returned when the board does not answer OK to an upload
	ErrUploadRejected = errors.New("upload rejected")

	// ErrOutsideSD is returned for upload targets outside of the SD card
	ErrOutsideSD = errors.New("path is not on the sd card")
)

// Enqueue appends line to the queue without starting it
func (b *Board) Enqueue(line string, opts queue.Options) (*queue.Command, error) {
	return b.queue.Enqueue(line, opts)
}

// EnqueueAndProcess appends line to the queue and starts processing
func (b *Board) EnqueueAndProcess(line string, opts queue.Options) (*queue.Command, error) {
	return b.queue.EnqueueAndProcess(line, opts)
}

// Command sends line through the queue and waits for its result.
func (b *Board) Command(ctx context.Context, line string) (queue.Result, error) {
	return b.CommandWithOptions(ctx, line, queue.Options{})
}

// CommandWithOptions is Command with per command options. When ctx ends
// first the command is withdrawn from the queue, or aborted if already sent.
func (b *Board) CommandWithOptions(ctx context.Context, line string, opts queue.Options) (queue.Result, error) {
	cmd, err := b.queue.EnqueueAndProcess(line, opts)
	if err != nil {
		return queue.Result{}, err
	}
	res, err := cmd.Wait(ctx)
	if err != nil && ctx.Err() != nil {
		b.queue.Cancel(cmd)
	}
	return res, err
}

// Pause stops the queue after the in-flight command
func (b *Board) Pause() {
	b.queue.Pause()
}

// Resume restarts the queue
func (b *Board) Resume() {
	b.queue.Resume()
}

// Clear cancels every queued command
func (b *Board) Clear() int {
	return b.queue.Clear()
}

// AbortCurrent cancels the in-flight command
func (b *Board) AbortCurrent() bool {
	return b.queue.AbortCurrent()
}

// ListFiles returns the cached files below dir, listing the board when
// needed or when refresh is set.
func (b *Board) ListFiles(ctx context.Context, dir string, refresh bool) ([]models.FileEntry, error) {
	return b.files.ListFiles(ctx, dir, refresh)
}

// Tree lists dir like ListFiles and returns it as nested folders.
func (b *Board) Tree(ctx context.Context, dir string, refresh bool) (models.Folder, error) {
	if _, err := b.files.ListFiles(ctx, dir, refresh); err != nil {
		return models.Folder{}, err
	}
	return b.files.Tree(dir), nil
}

// Version returns the firmware version
func (b *Board) Version(ctx context.Context) (decoders.BoardVersion, error) {
	res, err := b.Command(ctx, "version")
	if err != nil {
		return decoders.BoardVersion{}, err
	}
	return value[decoders.BoardVersion](res, "version")
}

// ClearAlarm sends M999 and reports whether a halt state was cleared
func (b *Board) ClearAlarm(ctx context.Context) (bool, error) {
	res, err := b.Command(ctx, protocol.ClearAlarmCommand)
	if err != nil {
		return false, err
	}
	return value[bool](res, protocol.ClearAlarmCommand)
}

// Break drops the board into its debug monitor
func (b *Board) Break(ctx context.Context) error {
	_, err := b.Command(ctx, protocol.BreakCommand)
	return err
}

// Remove deletes target on the board and from the cache
func (b *Board) Remove(ctx context.Context, target string) error {
	target = models.NormalizePath(target)
	if _, err := b.Command(ctx, "rm "+target); err != nil {
		return fmt.Errorf("failed to remove %s: %w", target, err)
	}
	b.files.Remove(target)
	return nil
}

// Mkdir creates dir on the board and caches it
func (b *Board) Mkdir(ctx context.Context, dir string) error {
	dir = models.NormalizePath(dir)
	if _, err := b.Command(ctx, "mkdir "+dir); err != nil {
		return fmt.Errorf("failed to create folder %s: %w", dir, err)
	}
	b.files.Set(models.NewFolder(models.Parent(dir), dir[strings.LastIndex(dir, "/")+1:]))
	return nil
}

// Move renames from to to on the board and in the cache
func (b *Board) Move(ctx context.Context, from, to string) error {
	from, to = models.NormalizePath(from), models.NormalizePath(to)
	if _, err := b.Command(ctx, "mv "+from+" "+to); err != nil {
		return fmt.Errorf("failed to move %s to %s: %w", from, to, err)
	}
	b.files.Rename(from, to)
	return nil
}

// Upload writes data to target on the SD card. The upload goes through
// the command queue like any command, and is cached once the board
// acknowledged it.
func (b *Board) Upload(ctx context.Context, target string, data []byte, onProgress clients.ProgressFunc) (models.FileEntry, error) {
	target = models.NormalizePath(target)
	if !models.IsDescendant(SDRoot, target) {
		return models.FileEntry{}, fmt.Errorf("%w: %s", ErrOutsideSD, target)
	}
	filename := strings.TrimPrefix(target, SDRoot+"/")

	_, err := b.CommandWithOptions(ctx, "upload "+target, queue.Options{
		OnProgress: onProgress,
		Request: func(timeout time.Duration) *clients.Request {
			return clients.UploadRequest(b.address, filename, data, timeout)
		},
		Decode: func(text string) (any, error) {
			if !strings.HasPrefix(text, "OK") {
				return nil, fmt.Errorf("%w: %s: %q", ErrUploadRejected, target, strings.TrimSpace(text))
			}
			return target, nil
		},
	})
	if err != nil {
		return models.FileEntry{}, fmt.Errorf("failed to upload %s: %w", target, err)
	}

	entry := models.NewFile(models.Parent(target), target[strings.LastIndex(target, "/")+1:], int64(len(data)))
	b.files.Set(entry)
	return entry, nil
}

// lister lists board folders for the file tree cache
type lister struct {
	b *Board
}

func (l lister) List(ctx context.Context, dir string) ([]models.FileEntry, error) {
	// decoded against dir, the command line cannot tell where a path with spaces ends
	res, err := l.b.CommandWithOptions(ctx, "ls -s "+dir, queue.Options{Raw: true})
	if err != nil {
		return nil, err
	}
	text, err := value[string](res, "ls")
	if err != nil {
		return nil, err
	}
	return decoders.ParseList(text, dir)
}

// value asserts the decoded value of a command
func value[T any](res queue.Result, name string) (T, error) {
	v, ok := res.Value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("unexpected %s value %T", name, res.Value)
	}
	return v, nil
}
