package playback

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var ErrOutsideRoot = errors.New("key escapes the playback root")

// Server streams files addressed by key relative to a root directory.
// Keys come straight from URLs, so every lookup is confined to the
// root.
type Server struct {
	root   string
	logger *slog.Logger
}

func NewServer(root string, logger *slog.Logger) *Server {
	return &Server{root: root, logger: logger}
}

// Resolve maps a key to an absolute path inside the root.
func (s *Server) Resolve(key string) (string, error) {
	cleaned := filepath.Clean("/" + filepath.FromSlash(key))
	path := filepath.Join(s.root, cleaned)
	if path != s.root && !strings.HasPrefix(path, s.root+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return path, nil
}

// ServeKey streams the file for a key, honoring a single byte range.
func (s *Server) ServeKey(w http.ResponseWriter, r *http.Request, key string) error {
	path, err := s.Resolve(key)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("open %s: %w", key, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", key, err)
	}
	if stat.IsDir() {
		http.Error(w, "not found", http.StatusNotFound)
		return nil
	}
	size := stat.Size()

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)

	span, err := ParseRange(r.Header.Get("Range"), size)
	switch {
	case errors.Is(err, ErrUnsatisfiable):
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	case errors.Is(err, ErrInvalidRange):
		// Malformed ranges fall back to the full file.
		span = nil
	case err != nil:
		return err
	}

	if span == nil {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
		w.WriteHeader(http.StatusOK)
		_, err = io.Copy(w, file)
		return err
	}

	if _, err := file.Seek(span.Start, io.SeekStart); err != nil {
		return fmt.Errorf("seek %s: %w", key, err)
	}
	w.Header().Set("Content-Length", fmt.Sprintf("%d", span.Length()))
	w.Header().Set("Content-Range", span.ContentRange(size))
	w.WriteHeader(http.StatusPartialContent)
	_, err = io.CopyN(w, file, span.Length())
	return err
}
