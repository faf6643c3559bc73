package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// maxSuffix bounds the " (n)" probing loops. A collision chain this long
// means something is badly wrong with the archive directory.
const maxSuffix = 100000

// Manager owns the local archive layout. The root holds Library, Albums,
// Shared Albums and Favorites directories plus the index database; all are
// auto-created on construction.
type Manager struct {
	rootDir         string
	libraryDir      string
	albumsDir       string
	sharedAlbumsDir string
	favoritesDir    string
	debugDir        string
}

// NewManager creates the archive directory layout under rootDir. When debug
// is set, a debug directory for raw API dumps is created as well.
func NewManager(rootDir string, debug bool) (*Manager, error) {
	m := &Manager{
		rootDir:         rootDir,
		libraryDir:      filepath.Join(rootDir, "Library"),
		albumsDir:       filepath.Join(rootDir, "Albums"),
		sharedAlbumsDir: filepath.Join(rootDir, "Shared Albums"),
		favoritesDir:    filepath.Join(rootDir, "Favorites"),
	}

	dirs := []string{m.rootDir, m.libraryDir, m.albumsDir, m.sharedAlbumsDir, m.favoritesDir}
	if debug {
		m.debugDir = filepath.Join(rootDir, "debug")
		dirs = append(dirs, m.debugDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return m, nil
}

func (m *Manager) RootDir() string         { return m.rootDir }
func (m *Manager) LibraryDir() string      { return m.libraryDir }
func (m *Manager) AlbumsDir() string       { return m.albumsDir }
func (m *Manager) SharedAlbumsDir() string { return m.sharedAlbumsDir }
func (m *Manager) FavoritesDir() string    { return m.favoritesDir }

// DebugDir returns the debug dump directory, or "" when debug is disabled.
func (m *Manager) DebugDir() string { return m.debugDir }

// EnsureDir creates the directory at path. If it already exists, a numeric
// suffix " (n)" is appended (n = 1, 2, ...) until an unused name is found,
// and that directory is created. Returns the absolute path of the directory
// actually created.
//
// The check-then-create pattern is not safe against concurrent callers
// racing on the same candidate; directory creation happens on the
// single-threaded listing path, so it never runs concurrently here.
func EnsureDir(path string) (string, error) {
	for n := 0; n <= maxSuffix; n++ {
		candidate := path
		if n > 0 {
			candidate = fmt.Sprintf("%s (%d)", path, n)
		}
		err := os.Mkdir(candidate, 0755)
		if err == nil {
			return filepath.Abs(candidate)
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("failed to create directory %s: %w", candidate, err)
		}
	}
	return "", fmt.Errorf("no free directory name for %s after %d attempts", path, maxSuffix)
}

// EnsureFilename returns path unchanged if no file exists there, otherwise
// inserts a numeric suffix " (n)" before the extension and retries until a
// free name is found. It only probes; the caller creates the file.
//
// Two workers whose sanitized names collide can both pass the probe before
// either writes. That race produces two suffixed files, not a failure.
func EnsureFilename(path string) (string, error) {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for n := 0; n <= maxSuffix; n++ {
		candidate := path
		if n > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, n, ext)
		}
		_, err := os.Stat(candidate)
		if os.IsNotExist(err) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to stat %s: %w", candidate, err)
		}
	}
	return "", fmt.Errorf("no free file name for %s after %d attempts", path, maxSuffix)
}

// SanitizeFilename strips characters that are illegal on common filesystems
// and trims trailing dots and spaces. An empty result becomes "untitled".
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < 0x20:
			// control characters
		case strings.ContainsRune(`/\:*?"<>|`, r):
		default:
			b.WriteRune(r)
		}
	}
	cleaned := strings.Trim(b.String(), " .")
	if cleaned == "" {
		return "untitled"
	}
	return cleaned
}

// SaveStream writes the reader's contents to path atomically: data goes to a
// temporary sibling first and is renamed into place only when fully written,
// so a killed process never leaves a partial file at the final path.
func SaveStream(r io.Reader, path string) (int64, error) {
	tempPath := path + ".tmp"
	out, err := os.Create(tempPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}

	written, err := io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempPath)
		return 0, fmt.Errorf("failed to write media data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return 0, fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return 0, fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return written, nil
}
