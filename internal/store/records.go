package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/jonathan/company-updater/internal/types"
)

const recordExt = ".json"

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ValidSlug reports whether slug is usable as a record file stem.
func ValidSlug(slug string) bool {
	return slugPattern.MatchString(slug)
}

// Records stores one pretty-printed JSON document per company under dir.
type Records struct {
	dir string
}

// NewRecords returns a record store rooted at dir.
func NewRecords(dir string) *Records {
	return &Records{dir: dir}
}

// Dir returns the directory holding record files.
func (r *Records) Dir() string {
	return r.dir
}

// Path returns the file path for slug.
func (r *Records) Path(slug string) string {
	return filepath.Join(r.dir, slug+recordExt)
}

// Load reads the record for slug. It returns ErrNotFound when the file does not exist.
func (r *Records) Load(slug string) (*types.Company, error) {
	if !ValidSlug(slug) {
		return nil, fmt.Errorf("invalid slug %q", slug)
	}
	path := r.Path(slug)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, &IOError{Op: "read", Path: path, Cause: err}
	}

	var company types.Company
	if err := json.Unmarshal(data, &company); err != nil {
		return nil, &IOError{Op: "decode", Path: path, Cause: err}
	}
	return &company, nil
}

// Exists reports whether a record file exists for slug.
func (r *Records) Exists(slug string) bool {
	_, err := os.Stat(r.Path(slug))
	return err == nil
}

// Save writes the record atomically (temp file then rename).
func (r *Records) Save(company *types.Company) error {
	if company == nil {
		return fmt.Errorf("cannot save nil company")
	}
	if !ValidSlug(company.ID) {
		return fmt.Errorf("invalid slug %q", company.ID)
	}
	path := r.Path(company.ID)

	data, err := encodeJSON(normalize(company))
	if err != nil {
		return &IOError{Op: "encode", Path: path, Cause: err}
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return &IOError{Op: "write", Path: r.dir, Cause: err}
	}
	return writeFileAtomic(path, data)
}

// IDs returns the slugs of every stored record, sorted.
func (r *Records) IDs() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, &IOError{Op: "list", Path: r.dir, Cause: err}
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, recordExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, recordExt))
	}
	sort.Strings(ids)
	return ids, nil
}

// List loads every stored record in slug order.
func (r *Records) List() ([]*types.Company, error) {
	ids, err := r.IDs()
	if err != nil {
		return nil, err
	}
	companies := make([]*types.Company, 0, len(ids))
	for _, id := range ids {
		c, err := r.Load(id)
		if err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, nil
}

// normalize replaces nil lists with empty ones so the file never holds null.
func normalize(c *types.Company) *types.Company {
	out := c.Clone()
	if out.NotableWorks == nil {
		out.NotableWorks = []string{}
	}
	if out.History == nil {
		out.History = []types.HistoryEntry{}
	}
	if out.RelatedCompanies == nil {
		out.RelatedCompanies = []string{}
	}
	return out
}

// encodeJSON pretty-prints v with two-space indentation and no HTML escaping.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &IOError{Op: "write", Path: path, Cause: err}
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return &IOError{Op: "write", Path: path, Cause: err}
	}
	if err := tmp.Close(); err != nil {
		return &IOError{Op: "write", Path: path, Cause: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &IOError{Op: "write", Path: path, Cause: err}
	}
	return nil
}
