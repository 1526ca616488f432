package site

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrIsDirectory is returned when an artifact path names a directory.
var ErrIsDirectory = errors.New("is a directory")

// Site is a read-only view of a project root.
//
// Design decision: Checks never touch the os package directly. Going through
// fs.FS keeps every read relative to the root, and lets tests use
// fstest.MapFS instead of temporary directories.
type Site struct {
	// fsys is the filesystem rooted at the project root.
	fsys fs.FS

	// root is the human-readable root path used in reports and logs.
	root string
}

// Open returns a Site backed by the directory at root.
// The directory is not required to exist: a missing root simply makes every
// artifact missing, which the checks report as such.
func Open(root string) *Site {
	return New(os.DirFS(root), root)
}

// New returns a Site backed by fsys. root is only used for display.
func New(fsys fs.FS, root string) *Site {
	return &Site{fsys: fsys, root: root}
}

// Root returns the display path of the project root.
func (s *Site) Root() string {
	return s.root
}

// FS returns the underlying filesystem.
func (s *Site) FS() fs.FS {
	return s.fsys
}

// Exists reports whether name exists in the root. Directories count as
// existing, the same as a plain filesystem existence test.
func (s *Site) Exists(name string) bool {
	_, err := fs.Stat(s.fsys, name)
	return err == nil
}

// IsFile reports whether name exists and is not a directory.
func (s *Site) IsFile(name string) bool {
	info, err := fs.Stat(s.fsys, name)
	return err == nil && !info.IsDir()
}

// ReadBytes reads the raw content of name.
func (s *Site) ReadBytes(name string) ([]byte, error) {
	info, err := fs.Stat(s.fsys, name)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, &fs.PathError{Op: "read", Path: name, Err: ErrIsDirectory}
	}
	return fs.ReadFile(s.fsys, name)
}

// ReadText reads name and decodes it to a string.
//
// Design decision: We decode with unicode.BOMOverride over a UTF-8 decoder.
// A UTF-8 byte order mark is dropped, UTF-16 files with a BOM are converted,
// and invalid UTF-8 sequences become U+FFFD instead of failing the read.
// Marker search only needs ASCII substrings, so lossy decoding is safe.
func (s *Site) ReadText(name string) (string, error) {
	data, err := s.ReadBytes(name)
	if err != nil {
		return "", err
	}
	return DecodeText(data)
}

// DecodeText decodes raw file content the same way ReadText does.
func DecodeText(data []byte) (string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	decoded, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return "", fmt.Errorf("failed to decode text: %w", err)
	}
	return string(decoded), nil
}

// Digest returns the hex-encoded BLAKE2b-256 digest of name's content.
func (s *Site) Digest(name string) (string, error) {
	data, err := s.ReadBytes(name)
	if err != nil {
		return "", err
	}
	return DigestBytes(data), nil
}

// DigestBytes returns the hex-encoded BLAKE2b-256 digest of data.
func DigestBytes(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ResolveRef converts a reference found in a document (an href, a src or a
// precache entry) into a path inside the root.
// It returns false for references that do not point into the root:
// absolute URLs, protocol-relative URLs, data/javascript/mailto URLs,
// fragments and the root itself.
func ResolveRef(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "//") {
		return "", false
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	if u.Scheme != "" || u.Host != "" {
		return "", false
	}

	p := path.Clean("/" + u.Path)
	p = strings.TrimPrefix(p, "/")
	if p == "" || p == "." {
		return "", false
	}
	return p, true
}
