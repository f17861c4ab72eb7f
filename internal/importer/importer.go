// Package importer seeds the phrase catalog from JSON or YAML files.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"voicecollect/internal/logging"
	"voicecollect/internal/phrases"
)

// progressEvery controls how often insert progress is logged.
const progressEvery = 100

// ErrCatalogNotEmpty is returned when the catalog already holds phrases and
// the import was not forced.
var ErrCatalogNotEmpty = errors.New("phrase catalog is not empty")

// Catalog is the slice of the repository the importer needs.
type Catalog interface {
	InsertPhrase(ctx context.Context, text string) (phrases.Phrase, bool, error)
	PhraseCount(ctx context.Context) (int64, error)
}

// Options tunes an import run.
type Options struct {
	// Force imports even when the catalog already has phrases.
	Force bool
}

// Result summarizes an import run.
type Result struct {
	Entries    int   `json:"entries"`
	Inserted   int   `json:"inserted"`
	Duplicates int   `json:"duplicates"`
	Empty      int   `json:"empty"`
	Bytes      int64 `json:"bytes"`
	Existing   int64 `json:"existing"`
}

// Importer loads phrases into a Catalog.
type Importer struct {
	catalog Catalog
	logger  *slog.Logger
}

// New builds an importer.
func New(catalog Catalog, logger *slog.Logger) *Importer {
	return &Importer{catalog: catalog, logger: logging.NewComponentLogger(logger, "importer")}
}

// ImportFile reads path, choosing YAML for .yaml/.yml and JSON otherwise.
func (im *Importer) ImportFile(ctx context.Context, path string, opts Options) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read phrases file: %w", err)
	}
	texts, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return Result{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	result, err := im.Import(ctx, texts, opts)
	result.Bytes = int64(len(data))
	if err == nil {
		im.logger.Info("phrase import complete",
			logging.String("file", path),
			logging.String("size", humanize.Bytes(uint64(len(data)))),
			logging.Int("inserted", result.Inserted),
			logging.Int("duplicates", result.Duplicates),
			logging.Int("empty", result.Empty),
			logging.String(logging.FieldEventType, "import_complete"),
		)
	}
	return result, err
}

// Import inserts texts after cleaning them. Duplicates within texts and
// against the catalog are skipped.
func (im *Importer) Import(ctx context.Context, texts []string, opts Options) (Result, error) {
	result := Result{Entries: len(texts)}
	existing, err := im.catalog.PhraseCount(ctx)
	if err != nil {
		return result, err
	}
	result.Existing = existing
	if existing > 0 && !opts.Force {
		im.logger.Info("catalog already populated; skipping import",
			logging.Int64("existing", existing),
			logging.String(logging.FieldErrorHint, "rerun with --force to import anyway"),
		)
		return result, fmt.Errorf("%w: %d phrases present", ErrCatalogNotEmpty, existing)
	}

	seen := make(map[string]struct{}, len(texts))
	for _, raw := range texts {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		text := Clean(raw)
		if text == "" {
			result.Empty++
			continue
		}
		if _, dup := seen[text]; dup {
			result.Duplicates++
			continue
		}
		seen[text] = struct{}{}
		_, created, err := im.catalog.InsertPhrase(ctx, text)
		if err != nil {
			return result, fmt.Errorf("insert phrase %q: %w", text, err)
		}
		if !created {
			result.Duplicates++
			im.logger.Debug("phrase already present", logging.String("phrase", text))
			continue
		}
		result.Inserted++
		if result.Inserted%progressEvery == 0 {
			im.logger.Info("import progress", logging.Int("inserted", result.Inserted), logging.Int("total", len(texts)))
		}
	}
	return result, nil
}

// Clean NFC-normalizes text and collapses runs of whitespace.
func Clean(text string) string {
	return strings.Join(strings.FieldsFunc(norm.NFC.String(text), unicode.IsSpace), " ")
}

// Parse decodes a list of entries, each either a bare string or an object
// with a "phrase" (or "text") field.
func Parse(data []byte, ext string) ([]string, error) {
	var items []any
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	}
	texts := make([]string, 0, len(items))
	for i, item := range items {
		text, err := entryText(item)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		texts = append(texts, text)
	}
	return texts, nil
}

func entryText(item any) (string, error) {
	switch v := item.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case map[string]any:
		for _, key := range []string{"phrase", "text"} {
			if raw, ok := v[key]; ok {
				s, ok := raw.(string)
				if !ok {
					return "", fmt.Errorf("%q must be a string", key)
				}
				return s, nil
			}
		}
		return "", errors.New(`object has no "phrase" field`)
	default:
		return "", fmt.Errorf("unsupported entry type %T", item)
	}
}
