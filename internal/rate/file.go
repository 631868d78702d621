package rate

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/config"
)

// FileSource yields the integer stored in a file each time the file changes.
// Reads that arrive faster than they are consumed collapse to the latest one.
// A file that does not parse is reported as a *ParseError.
type FileSource struct {
	path    string
	watcher *config.Watcher[int64]
	reads   chan fileRead
}

type fileRead struct {
	value int64
	err   error
}

// ReadFile parses the first whitespace-separated token of path.
func ReadFile(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, &ParseError{Token: "", Err: strconv.ErrSyntax}
	}
	return parseToken(fields[0])
}

// NewFileSource starts watching path. If the file already holds a valid value
// it is delivered by the first ReadNextRate call.
func NewFileSource(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger) (*FileSource, error) {
	f := &FileSource{
		path:  path,
		reads: make(chan fileRead, 1),
	}

	v, err := ReadFile(path)
	switch {
	case err == nil:
		f.offer(fileRead{value: v})
	case isParseError(err):
		f.offer(fileRead{err: err})
	}

	f.watcher = config.NewWatcher(path, ReadFile, logger,
		config.WithDebounce[int64](debounce),
		config.WithErrorHandler[int64](f.loadFailed))
	f.watcher.OnReload(func(v int64) {
		f.offer(fileRead{value: v})
	})
	if err := f.watcher.Start(ctx); err != nil {
		return nil, err
	}
	return f, nil
}

// Name returns the watched path.
func (f *FileSource) Name() string { return f.path }

// ReadNextRate blocks until the file changes or ctx ends.
func (f *FileSource) ReadNextRate(ctx context.Context) (int64, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case r := <-f.reads:
		return r.value, r.err
	}
}

// Close stops the watcher.
func (f *FileSource) Close() error {
	return f.watcher.Stop()
}

// loadFailed forwards parse failures to the reader. Other read errors,
// such as the file being replaced mid-write, are only logged by the watcher.
func (f *FileSource) loadFailed(err error) {
	if isParseError(err) {
		f.offer(fileRead{err: err})
	}
}

func isParseError(err error) bool {
	var perr *ParseError
	return errors.As(err, &perr)
}

// offer stores r in the single slot, replacing any unread read.
// Only the watcher goroutine calls it after construction.
func (f *FileSource) offer(r fileRead) {
	for {
		select {
		case f.reads <- r:
			return
		default:
		}
		select {
		case <-f.reads:
		default:
		}
	}
}
