package catalog

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const hashPrefix = "h1:"

type (
	// OrderFile is the persisted form of a resolved catalog. Each entry's hash
	// chains the previous entry's hash, so reordering, adding or removing a
	// line is detected on load.
	OrderFile struct {
		entries   []orderEntry
		TotalHash string // h1 hash over every entry hash
	}

	orderEntry struct {
		Name string
		Hash []byte
	}
)

// NewOrderFile creates an empty OrderFile.
//
//	of := NewOrderFile()
//	of.Add("001_create_farms.sql")
//	of.Add("002_create_crops.sql")
//	_, err := of.WriteTo(f)
func NewOrderFile() *OrderFile {
	return &OrderFile{entries: make([]orderEntry, 0)}
}

// LoadOrderFile reads an OrderFile in the format produced by WriteTo and
// verifies every hash:
//   - First line: total hash (h1:base64-encoded-hash)
//   - Following lines: <filename> <h1:base64-encoded-hash>
func LoadOrderFile(r io.Reader) (*OrderFile, error) {
	scanner := bufio.NewScanner(r)
	loaded := NewOrderFile()

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, errors.Wrap(err, "failed to read total hash line")
		}
		return loaded, nil
	}

	totalHash := strings.TrimSpace(scanner.Text())
	if totalHash != "" && !strings.HasPrefix(totalHash, hashPrefix) {
		return nil, errors.Errorf("invalid total hash format: %s", totalHash)
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		name, hash, ok := strings.Cut(line, " ")
		if !ok {
			return nil, errors.Errorf("invalid entry format: %s", line)
		}

		if !strings.HasPrefix(hash, hashPrefix) {
			return nil, errors.Errorf("invalid hash format for %s: %s", name, hash)
		}

		want, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(hash, hashPrefix))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode hash for %s", name)
		}

		loaded.Add(name)
		if got := loaded.entries[len(loaded.entries)-1].Hash; !bytes.Equal(got, want) {
			return nil, errors.Errorf("hash mismatch for %s", name)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error reading order file")
	}

	loaded.computeTotalHash()
	if loaded.TotalHash != totalHash {
		return nil, errors.Errorf("total hash mismatch: have %s, want %s", totalHash, loaded.TotalHash)
	}

	return loaded, nil
}

// Add appends name, chaining its hash to the previous entry.
//
// The chaining works as follows:
//   - First entry: hash = SHA256(name)
//   - Subsequent entries: hash = SHA256(name + previousHash)
func (o *OrderFile) Add(name string) {
	hasher := sha256.New()
	hasher.Write([]byte(name))

	if len(o.entries) > 0 {
		hasher.Write(o.entries[len(o.entries)-1].Hash)
	}

	o.entries = append(o.entries, orderEntry{Name: name, Hash: hasher.Sum(nil)})
}

// Names returns the entries in order.
func (o *OrderFile) Names() []string {
	names := make([]string, len(o.entries))
	for i, e := range o.entries {
		names[i] = e.Name
	}
	return names
}

// WriteTo writes the order file. It implements io.WriterTo.
//
// Example output:
//
//	h1:dG90YWxoYXNoZXhhbXBsZQ==
//	001_create_farms.sql h1:dGVzdGRhdGE=
//	002_create_crops.sql h1:bW9yZXRlc3Q=
func (o *OrderFile) WriteTo(w io.Writer) (int64, error) {
	var total int64

	o.computeTotalHash()

	n, err := fmt.Fprintf(w, "%s\n", o.TotalHash)
	if err != nil {
		return total, err
	}
	total += int64(n)

	for _, e := range o.entries {
		n, err := fmt.Fprintf(w, "%s %s%s\n", e.Name, hashPrefix, base64.StdEncoding.EncodeToString(e.Hash))
		if err != nil {
			return total, err
		}
		total += int64(n)
	}

	return total, nil
}

func (o *OrderFile) computeTotalHash() {
	if len(o.entries) == 0 {
		o.TotalHash = ""
		return
	}

	hasher := sha256.New()
	for _, e := range o.entries {
		hasher.Write(e.Hash)
	}

	o.TotalHash = hashPrefix + base64.StdEncoding.EncodeToString(hasher.Sum(nil))
}
