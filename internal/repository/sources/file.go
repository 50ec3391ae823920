package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/nix-npm-updater/internal/domain/channel"
)

// Repository defines read/patch operations over the pinned channel blocks.
type Repository interface {
	CurrentVersion(ctx context.Context, tag string) (string, error)
	UpdatePin(ctx context.Context, tag string, pin channel.Pin) error
}

// FileRepository patches channel pins inside a Nix sources file on disk.
type FileRepository struct {
	// path is the filesystem location of the sources file.
	path string
	// mu protects concurrent access to the sources file.
	mu sync.Mutex
}

var (
	// ErrChannelNotFound is returned when no block for the tag exists in the file.
	ErrChannelNotFound = errors.New("channel not found in sources file")
	// ErrMalformedBlock is returned when a channel block lacks an expected field.
	ErrMalformedBlock = errors.New("malformed channel block")
	// ErrEmptyPin is returned when an update carries neither a version nor a hash.
	ErrEmptyPin = errors.New("empty pin")
)

var (
	// versionFieldRegexp captures the value of the version field inside a block.
	versionFieldRegexp = regexp.MustCompile(`version[ \t]*=[ \t]*"([^"]*)"`)
	// sha256FieldRegexp captures the value of the sha256 field inside a block.
	sha256FieldRegexp = regexp.MustCompile(`sha256[ \t]*=[ \t]*"([^"]*)"`)
)

// NewFileRepository creates a repository that patches the sources file at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// CurrentVersion returns the version recorded for the tag.
// An absent or malformed block reads as "" rather than an error;
// callers must treat an empty result as "unknown".
func (r *FileRepository) CurrentVersion(_ context.Context, tag string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		return "", fmt.Errorf("read sources file: %w", err)
	}

	block := blockRegexp(tag).Find(contents)
	if block == nil {
		return "", nil
	}

	match := versionFieldRegexp.FindSubmatch(block)
	if match == nil {
		return "", nil
	}

	return string(match[1]), nil
}

// UpdatePin rewrites the version and sha256 values inside the tag's block,
// preserving every other byte of the document. The file is replaced
// atomically so a crash cannot leave a half-written sources file behind.
// A zero pin is rejected before the file is read.
func (r *FileRepository) UpdatePin(_ context.Context, tag string, pin channel.Pin) error {
	if pin.IsZero() {
		return fmt.Errorf("channel %s: %w", tag, ErrEmptyPin)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read sources file: %w", err)
	}

	block := blockRegexp(tag).FindIndex(contents)
	if block == nil {
		return fmt.Errorf("channel %s: %w", tag, ErrChannelNotFound)
	}

	blockBytes := contents[block[0]:block[1]]

	versionSpan, err := fieldSpan(blockBytes, versionFieldRegexp, tag, "version", block[0])
	if err != nil {
		return err
	}

	sha256Span, err := fieldSpan(blockBytes, sha256FieldRegexp, tag, "sha256", block[0])
	if err != nil {
		return err
	}

	// Last line of defense: nothing unsanitized is ever spliced into the file.
	version := channel.SanitizeToken(pin.Version)
	hash := channel.SanitizeToken(pin.SHA256)

	// Replace the later span first so the earlier offsets stay valid.
	firstSpan, firstValue := versionSpan, version
	secondSpan, secondValue := sha256Span, hash

	if firstSpan[0] < secondSpan[0] {
		firstSpan, secondSpan = secondSpan, firstSpan
		firstValue, secondValue = secondValue, firstValue
	}

	updated := splice(contents, firstSpan, firstValue)
	updated = splice(updated, secondSpan, secondValue)

	return r.replaceFile(updated)
}

// replaceFile swaps the sources file contents atomically, keeping the
// original file mode and cleaning up the backup left by the swap.
func (r *FileRepository) replaceFile(contents []byte) error {
	info, err := os.Stat(r.path)
	if err != nil {
		return fmt.Errorf("stat sources file: %w", err)
	}

	options := goupdate.Options{
		TargetPath: r.path,
		TargetMode: info.Mode(),
	}

	if err = goupdate.Apply(bytes.NewReader(contents), options); err != nil {
		return fmt.Errorf("write sources file: %w", err)
	}

	oldFileName := r.path + ".old"
	if _, err = os.Stat(oldFileName); err == nil {
		_ = os.Remove(oldFileName)
	}

	return nil
}

// blockRegexp matches the whole `tag = { ... }` block for the given tag,
// tolerating quoted attribute names and arbitrary formatting inside the
// block. Quoted values may embed braces (Nix string interpolation); the
// block ends at the first brace outside a quoted string.
func blockRegexp(tag string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^[ \t]*"?` + regexp.QuoteMeta(tag) + `"?[ \t]*=[ \t]*\{(?:[^}"]|"[^"]*")*\}`)
}

// fieldSpan locates the value of a field inside the block and returns its
// span in whole-document coordinates.
func fieldSpan(block []byte, re *regexp.Regexp, tag, field string, offset int) ([2]int, error) {
	match := re.FindSubmatchIndex(block)
	if match == nil {
		return [2]int{}, fmt.Errorf("channel %s: no %s field: %w", tag, field, ErrMalformedBlock)
	}

	return [2]int{offset + match[2], offset + match[3]}, nil
}

// splice replaces the span of the document with the provided value.
func splice(contents []byte, span [2]int, value string) []byte {
	updated := make([]byte, 0, len(contents)-(span[1]-span[0])+len(value))
	updated = append(updated, contents[:span[0]]...)
	updated = append(updated, value...)
	updated = append(updated, contents[span[1]:]...)

	return updated
}
