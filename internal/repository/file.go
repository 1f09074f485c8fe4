package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/varoOP/shinkrorec/internal/domain"
	"gopkg.in/yaml.v3"
)

// FileRepository implements domain.WatchlistArchive using plain files
type FileRepository struct {
	log zerolog.Logger
}

// NewFileRepository creates a new file-based repository
func NewFileRepository(log zerolog.Logger) *FileRepository {
	return &FileRepository{
		log: log.With().Str("module", "repository").Logger(),
	}
}

var _ domain.WatchlistArchive = (*FileRepository)(nil)

// FormatFromPath guesses the format from the file extension, defaulting to json
func FormatFromPath(path string) domain.ExportFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return domain.ExportFormatYAML
	default:
		return domain.ExportFormatJSON
	}
}

// Get reads a watchlist file written by Store
func (r *FileRepository) Get(ctx context.Context, path string) ([]domain.WatchlistEntry, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file does not exist: %s: %w", path, err)
		}
		return nil, fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer f.Close()

	body, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	entries := []domain.WatchlistEntry{}
	switch FormatFromPath(path) {
	case domain.ExportFormatYAML:
		err = yaml.Unmarshal(body, &entries)
	default:
		err = json.Unmarshal(body, &entries)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}

	r.log.Debug().Str("path", path).Int("count", len(entries)).Msg("read watchlist file")
	return entries, nil
}

// Store writes entries to path in format
func (r *FileRepository) Store(ctx context.Context, path string, format domain.ExportFormat, entries []domain.WatchlistEntry) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer f.Close()

	if err := Encode(f, format, entries); err != nil {
		return err
	}

	r.log.Debug().Str("path", path).Str("format", string(format)).Int("count", len(entries)).Msg("stored watchlist file")
	return nil
}

// Encode writes entries to w. YAML output separates entries with a blank line.
func Encode(w io.Writer, format domain.ExportFormat, entries []domain.WatchlistEntry) error {
	if entries == nil {
		entries = []domain.WatchlistEntry{}
	}

	var b []byte
	var err error
	switch format {
	case domain.ExportFormatJSON:
		b, err = json.MarshalIndent(entries, "", "   ")
		if err != nil {
			return fmt.Errorf("failed to marshal json: %w", err)
		}
		b = append(b, '\n')

	case domain.ExportFormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("failed to marshal yaml: %w", err)
		}
		enc.Close()
		b = spaceEntries(buf.Bytes())

	default:
		return fmt.Errorf("unknown format: %q (must be 'json' or 'yaml')", format)
	}

	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("failed to write watchlist: %w", err)
	}
	return nil
}

// spaceEntries puts an empty line before every top level entry but the first
func spaceEntries(b []byte) []byte {
	lines := strings.Split(string(b), "\n")
	first := true
	for i, line := range lines {
		if strings.HasPrefix(line, "- ") {
			if !first {
				lines[i] = "\n" + line
			}
			first = false
		}
	}
	return []byte(strings.Join(lines, "\n"))
}
