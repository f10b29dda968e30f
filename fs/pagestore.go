// Package fs archives fetched listing pages on the local file system.
package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/autotrack"
)

// Compile-time interface verification.
var (
	_ autotrack.PageArchiver = (*Archiver)(nil)
	_ autotrack.PageArchive  = (*FileStore)(nil)
)

// Archiver creates one FileStore per crawl run under a base directory.
type Archiver struct {
	BaseDir string

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewArchiver creates an Archiver writing under baseDir.
func NewArchiver(baseDir string) *Archiver {
	return &Archiver{BaseDir: baseDir}
}

// OpenArchive returns a FileStore for runID, creating the base directory if needed.
func (a *Archiver) OpenArchive(_ context.Context, runID string) (autotrack.PageArchive, error) {
	if runID == "" || strings.ContainsAny(runID, `/\`) {
		return nil, autotrack.Errorf(autotrack.EINVALID, "invalid run ID %q", runID)
	}
	if err := os.MkdirAll(a.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	store := NewFileStore(a.BaseDir, runID)
	store.now = a.Now
	return store, nil
}

// FileStore implements autotrack.PageArchive with atomic update semantics.
// Pages are saved to a temporary directory, then moved atomically on Commit.
type FileStore struct {
	baseDir string
	name    string
	now     func() time.Time
}

// NewFileStore creates a new FileStore.
// baseDir is the parent directory, name is the output directory name.
// Files are saved to baseDir/name.tmp and moved to baseDir/name on Commit.
func NewFileStore(baseDir, name string) *FileStore {
	return &FileStore{
		baseDir: baseDir,
		name:    name,
	}
}

func (s *FileStore) tempDir() string {
	return filepath.Join(s.baseDir, s.name+".tmp")
}

func (s *FileStore) finalDir() string {
	return filepath.Join(s.baseDir, s.name)
}

// SavePage writes page n as page-NNN.html in the temporary directory.
func (s *FileStore) SavePage(ctx context.Context, n int, pageURL, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.tempDir(), 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.tempDir(), PageFileName(n)), []byte(s.format(pageURL, content)), 0644)
}

// PageFileName returns the archive file name of page n.
func PageFileName(n int) string {
	return fmt.Sprintf("page-%03d.html", n)
}

// format prefixes content with a comment naming its source.
func (s *FileStore) format(pageURL, content string) string {
	now := time.Now
	if s.now != nil {
		now = s.now
	}

	var b strings.Builder
	b.WriteString("<!--\n")
	b.WriteString("source: ")
	b.WriteString(pageURL)
	b.WriteString("\nfetched: ")
	b.WriteString(now().UTC().Format(time.RFC3339))
	b.WriteString("\n-->\n")
	b.WriteString(content)
	return b.String()
}

// Commit moves saved pages to the final directory, replacing any previous
// archive of the same run. Committing a run with no saved pages is a no-op.
func (s *FileStore) Commit() error {
	if _, err := os.Stat(s.tempDir()); os.IsNotExist(err) {
		return nil
	}

	if err := os.RemoveAll(s.finalDir()); err != nil {
		return err
	}

	return os.Rename(s.tempDir(), s.finalDir())
}

// Abort removes the temporary directory.
func (s *FileStore) Abort() error {
	return os.RemoveAll(s.tempDir())
}
