// Package upload stores chat images and serves them back by name.
package upload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/dkeye/Huddle/internal/config"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

var (
	ErrTooLarge        = errors.New("file is too large")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrNotFound        = errors.New("file not found")
)

// Stored describes a saved upload.
type Stored struct {
	Name string
	URL  string
	MIME string
	Size int
}

type Store struct {
	fs       afero.Fs
	dir      string
	prefix   string
	maxBytes int64
	allowed  []string
}

func NewStore(fs afero.Fs, cfg config.UploadConfig) (*Store, error) {
	if err := fs.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	prefix := cfg.PublicPrefix
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Store{
		fs:       fs,
		dir:      cfg.Dir,
		prefix:   prefix,
		maxBytes: cfg.MaxBytes,
		allowed:  cfg.AllowedTypes,
	}, nil
}

func (s *Store) MaxBytes() int64 { return s.maxBytes }

// Save sniffs r and writes it under a fresh random name keeping the detected
// extension.
func (s *Store) Save(r io.Reader) (Stored, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return Stored{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return Stored{}, ErrTooLarge
	}

	mt := mimetype.Detect(data)
	if !s.accepts(mt) {
		log.Info().Str("module", "upload").Str("mime", mt.String()).Msg("rejected type")
		return Stored{}, ErrUnsupportedType
	}

	name := uuid.NewString() + mt.Extension()
	if err := afero.WriteFile(s.fs, path.Join(s.dir, name), data, 0o644); err != nil {
		return Stored{}, fmt.Errorf("write upload: %w", err)
	}
	log.Info().Str("module", "upload").Str("name", name).Str("mime", mt.String()).Int("size", len(data)).Msg("stored")
	return Stored{Name: name, URL: s.prefix + name, MIME: mt.String(), Size: len(data)}, nil
}

// Open returns a stored file and its sniffed content type. Names are plain
// file names; anything with a path component is not found.
func (s *Store) Open(name string) ([]byte, string, error) {
	if name == "" || name != path.Base(name) || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return nil, "", ErrNotFound
	}
	data, err := afero.ReadFile(s.fs, path.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	return data, mimetype.Detect(data).String(), nil
}

func (s *Store) accepts(mt *mimetype.MIME) bool {
	for _, t := range s.allowed {
		if mt.Is(t) {
			return true
		}
	}
	return false
}
