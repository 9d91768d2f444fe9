package catalog

import (
	"cmp"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

type (
	// MigrationFile is a single versioned migration. Its identity is the file name.
	MigrationFile struct {
		// Name is the file name, e.g. 006_add_sensor_battery.sql
		Name string `json:"name"`

		// Sequence is the numeric prefix of the name
		Sequence int `json:"sequence"`

		// TieBreak ranks files sharing a sequence number; lower runs first
		TieBreak int `json:"tieBreak"`
	}

	// Catalog is the resolved, totally ordered list of migration files.
	Catalog struct {
		// Dir is the directory the files were found in. It is empty when the
		// catalog was served from the order file.
		Dir string `json:"dir,omitempty"`

		Files []MigrationFile `json:"files"`
	}
)

// Names returns the file names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Files))
	for i, f := range c.Files {
		names[i] = f.Name
	}
	return names
}

// Contains reports whether name is a member of the catalog.
func (c *Catalog) Contains(name string) bool {
	return slices.ContainsFunc(c.Files, func(f MigrationFile) bool { return f.Name == name })
}

// Path returns the location of name on disk, or "" when the catalog has no
// directory.
func (c *Catalog) Path(name string) string {
	if c.Dir == "" {
		return ""
	}
	return filepath.Join(c.Dir, name)
}

// namer recognises migration file names and ranks them.
type namer struct {
	pattern   *regexp.Regexp
	tieBreaks map[string]int
}

func newNamer(extensions, tieBreaks []string) *namer {
	exts := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if ext != "" {
			exts = append(exts, regexp.QuoteMeta(ext))
		}
	}
	if len(exts) == 0 {
		exts = append(exts, "sql")
	}

	ranks := make(map[string]int, len(tieBreaks))
	for i, name := range tieBreaks {
		if _, ok := ranks[name]; !ok {
			ranks[name] = i
		}
	}

	return &namer{
		pattern:   regexp.MustCompile(`^(\d+)_([A-Za-z0-9][A-Za-z0-9_.-]*)\.(` + strings.Join(exts, "|") + `)$`),
		tieBreaks: ranks,
	}
}

// parse returns the MigrationFile for name, or false when name does not
// follow the NNN_description.ext convention.
func (n *namer) parse(name string) (MigrationFile, bool) {
	m := n.pattern.FindStringSubmatch(name)
	if m == nil {
		return MigrationFile{}, false
	}

	seq, err := strconv.Atoi(m[1])
	if err != nil {
		return MigrationFile{}, false
	}

	rank, ok := n.tieBreaks[name]
	if !ok {
		// unlisted files sort after every listed one
		rank = len(n.tieBreaks)
	}

	return MigrationFile{Name: name, Sequence: seq, TieBreak: rank}, true
}

func sortFiles(files []MigrationFile) {
	slices.SortFunc(files, func(a, b MigrationFile) int {
		return cmp.Or(
			cmp.Compare(a.Sequence, b.Sequence),
			cmp.Compare(a.TieBreak, b.TieBreak),
			strings.Compare(a.Name, b.Name),
		)
	})
}
