package record

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"kifu/internal/domain/kif"
)

// ImportReport maps every KIF file found under a directory to the key it was
// stored under or to the reason it was skipped.
type ImportReport struct {
	Imported map[string]string `json:"imported" yaml:"imported"`
	Failed   map[string]string `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// Paths lists every file of the report in lexical order.
func (r ImportReport) Paths() []string {
	paths := make([]string, 0, len(r.Imported)+len(r.Failed))
	for path := range r.Imported {
		paths = append(paths, path)
	}
	for path := range r.Failed {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// IsRecordFile reports whether name looks like a KIF game record.
func IsRecordFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".kif", ".kifu":
		return true
	}
	return false
}

// RecordName names a record after its file, without the extension.
func RecordName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ImportDir stores every .kif and .kifu file under root. A broken file does not
// stop the walk; only filesystem errors do. With no explicit encoding .kifu
// files are read as UTF-8 and .kif files with the configured default.
func (u *RecordUseCase) ImportDir(ctx context.Context, root string, encoding string) (ImportReport, error) {
	report := ImportReport{Imported: map[string]string{}, Failed: map[string]string{}}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !IsRecordFile(d.Name()) {
			return nil
		}

		rec, err := u.importFile(ctx, path, encodingFor(path, encoding))
		if err != nil {
			u.log.Warnf("failed to import %s: %v", path, err)
			report.Failed[path] = err.Error()
			return nil
		}
		report.Imported[path] = rec.Key
		return nil
	})
	if err != nil {
		return report, err
	}

	u.log.Infow("directory imported", "root", root, "imported", len(report.Imported), "failed", len(report.Failed))
	return report, nil
}

func (u *RecordUseCase) importFile(ctx context.Context, path, encoding string) (kif.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return kif.Record{}, err
	}
	defer f.Close()

	return u.Import(ctx, RecordName(path), f, encoding)
}

func encodingFor(path, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if strings.EqualFold(filepath.Ext(path), ".kifu") {
		return "utf-8"
	}
	return ""
}
