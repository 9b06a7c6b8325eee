package corpus

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Intent is one group of the intents file as it appears on disk.
type Intent struct {
	Tag       string   `json:"tag" validate:"required"`
	Patterns  []string `json:"patterns"`
	Responses []string `json:"responses" validate:"required,min=1,dive,required"`
}

type document struct {
	Intents []Intent `json:"intents" validate:"required,min=1,dive"`
}

// Record is a single training row: one pattern with its tag and the tag's full
// response set.
type Record struct {
	Tag       string
	Pattern   string
	Responses []string
}

// Table is the flattened corpus. It is read-only after Load.
type Table struct {
	records []Record
	first   map[string]int
	tags    []string
	digest  string
}

// Load reads and flattens the intents file at path.
func Load(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read intents file: %w", err)
	}
	return Parse(bytes.NewReader(raw))
}

// Parse decodes an intents document and flattens it into a Table.
func Parse(r io.Reader) (*Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read intents: %w", err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode intents: %w", err)
	}
	if err := validate.Struct(doc); err != nil {
		return nil, fmt.Errorf("invalid intents: %w", err)
	}

	sum := sha256.Sum256(raw)
	t := &Table{
		first:  make(map[string]int),
		digest: hex.EncodeToString(sum[:]),
	}
	for _, intent := range doc.Intents {
		tag := Normalize(intent.Tag)
		if tag == "" {
			return nil, fmt.Errorf("invalid intents: tag %q is empty after normalization", intent.Tag)
		}
		for _, pattern := range intent.Patterns {
			if _, seen := t.first[tag]; !seen {
				t.first[tag] = len(t.records)
				t.tags = append(t.tags, tag)
			}
			t.records = append(t.records, Record{
				Tag:       tag,
				Pattern:   Normalize(pattern),
				Responses: intent.Responses,
			})
		}
	}
	if len(t.records) == 0 {
		return nil, errors.New("invalid intents: no patterns found")
	}

	return t, nil
}

// Records returns every flattened row in file order.
func (t *Table) Records() []Record {
	return t.records
}

// Len is the number of rows.
func (t *Table) Len() int {
	return len(t.records)
}

// Tags returns the distinct normalized tags in order of first appearance.
func (t *Table) Tags() []string {
	return t.tags
}

// Responses returns the response set of the first row carrying tag.
func (t *Table) Responses(tag string) ([]string, bool) {
	i, ok := t.first[tag]
	if !ok {
		return nil, false
	}
	return t.records[i].Responses, true
}

// Digest is the hex SHA-256 of the raw intents document.
func (t *Table) Digest() string {
	return t.digest
}
