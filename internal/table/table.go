package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dullg/boardgame-migrate/pkg/models"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Read parses a CSV stream with a header row. A leading UTF-8 BOM is dropped.
func Read(r io.Reader, name string) (*models.Table, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return models.NewTable(name), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", name, err)
	}

	t := models.NewTable(name, header...)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Load reads a whole CSV file into memory. The file is closed before returning.
func Load(path, name string) (*models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if name == "" {
		name = filepath.Base(path)
	}
	return Read(f, name)
}

// LoadOptional is Load for tables that may legitimately be absent.
// A missing file yields ok=false and no error.
func LoadOptional(path, name string) (*models.Table, bool, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	t, err := Load(path, name)
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// Write emits header and rows. No BOM is written.
func Write(w io.Writer, t *models.Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Header); err != nil {
		return err
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return err
	}
	return writer.Error()
}

// Save rewrites path in full. Data goes to a temp file in the same directory
// which is renamed over the target once completely written.
func Save(path string, t *models.Table) error {
	tmpName, err := stage(path, t)
	if err != nil {
		return err
	}
	return commit(tmpName, path)
}

// stage writes t to a synced temp file next to path and returns its name.
// Nothing is left behind on failure.
func stage(path string, t *models.Table) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return "", fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if err := Write(tmp, t); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("syncing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	return tmpName, nil
}

func commit(tmpName, path string) error {
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// WithHeader swaps the header of a table whose exported names are unusable.
// The exported header's width is ignored; rows keep their cells and short
// rows read as empty.
func WithHeader(t *models.Table, header []string) {
	t.Header = append([]string(nil), header...)
}

// Output pairs a table with its destination path.
type Output struct {
	Path  string
	Table *models.Table
}

// SaveAll stages every output before replacing any target, so a failed
// write leaves all of them untouched.
func SaveAll(outputs []Output) error {
	staged := make([]string, 0, len(outputs))
	discard := func(from int) {
		for _, name := range staged[from:] {
			os.Remove(name)
		}
	}

	for _, out := range outputs {
		tmpName, err := stage(out.Path, out.Table)
		if err != nil {
			discard(0)
			return err
		}
		staged = append(staged, tmpName)
	}

	for i, out := range outputs {
		if err := commit(staged[i], out.Path); err != nil {
			discard(i + 1)
			return err
		}
	}
	return nil
}
