package docex

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Resolver confines document paths to a root directory.
type Resolver struct {
	root string
}

// NewResolver creates a Resolver for root. The root does not need to exist
// yet; every Resolve call re-evaluates it.
func NewResolver(root string) *Resolver {
	return &Resolver{root: root}
}

// Root returns the configured document root.
func (r *Resolver) Root() string { return r.root }

// Resolve maps a root-relative path to an existing file inside the root.
// Absolute paths and paths that leave the root (lexically or through a
// symlink) fail with *ErrPathEscape before anything outside the root is
// touched; missing files fail with *ErrNotFound.
func (r *Resolver) Resolve(path string) (string, error) {
	if path == "" {
		return "", &ErrNotFound{Path: path, Root: r.root}
	}
	if filepath.IsAbs(path) || filepath.VolumeName(path) != "" {
		return "", &ErrPathEscape{Path: path}
	}
	root, err := r.realRoot()
	if err != nil {
		return "", err
	}
	candidate := filepath.Join(root, path)
	if !within(root, candidate) {
		return "", &ErrPathEscape{Path: path}
	}

	info, err := os.Stat(candidate)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &ErrNotFound{Path: path, Root: root}
		}
		return "", err
	}
	real, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		return "", err
	}
	if !within(root, real) {
		return "", &ErrPathEscape{Path: path}
	}
	if info.IsDir() {
		return "", &ErrNotFound{Path: path, Root: root}
	}
	return real, nil
}

// List enumerates *.pdf and *.PDF files directly under the root, sorted by
// filename. It never opens the files.
func (r *Resolver) List() ([]FileInfo, error) {
	root, err := r.realRoot()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []FileInfo
	for _, e := range entries {
		if e.IsDir() || !isPDFName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, FileInfo{
			Filename:  e.Name(),
			Path:      filepath.Join(root, e.Name()),
			SizeBytes: info.Size(),
			SizeMB:    roundMB(info.Size()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out, nil
}

func (r *Resolver) realRoot() (string, error) {
	abs, err := filepath.Abs(r.root)
	if err != nil {
		return "", err
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real, nil
	}
	return abs, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// isPDFName matches the two spellings the document root is scanned for.
func isPDFName(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".pdf" || ext == ".PDF"
}

func roundMB(size int64) float64 {
	mb := float64(size) / (1024 * 1024)
	return float64(int64(mb*100+0.5)) / 100
}

func baseName(path string) string {
	return filepath.Base(path)
}

var unsafeStemChars = regexp.MustCompile(`[^\p{L}\p{N}_\-]`)

// SanitizeStem returns the filename without its extension, with every
// character that is not a letter, digit, underscore or hyphen replaced by an
// underscore.
func SanitizeStem(filename string) string {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return unsafeStemChars.ReplaceAllString(stem, "_")
}
