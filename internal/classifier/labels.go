package classifier

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrUnknownLabel    = errors.New("unknown label")
	ErrLabelOutOfRange = errors.New("label id out of range")
)

// LabelEncoder maps intent tags to contiguous ids. Classes are kept sorted so the
// mapping only depends on the set of tags, not on corpus order.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

// FitLabels builds an encoder over the distinct values of tags.
func FitLabels(tags []string) *LabelEncoder {
	classes := slices.Clone(tags)
	slices.Sort(classes)
	return NewLabelEncoder(slices.Compact(classes))
}

// NewLabelEncoder restores an encoder from an already sorted, distinct class list,
// e.g. the one stored in a checkpoint.
func NewLabelEncoder(classes []string) *LabelEncoder {
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	return &LabelEncoder{classes: classes, index: index}
}

func (l *LabelEncoder) Encode(tag string) (int, error) {
	id, ok := l.index[tag]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLabel, tag)
	}
	return id, nil
}

func (l *LabelEncoder) Decode(id int) (string, error) {
	if id < 0 || id >= len(l.classes) {
		return "", fmt.Errorf("%w: %d", ErrLabelOutOfRange, id)
	}
	return l.classes[id], nil
}

// Classes returns the tags ordered by id.
func (l *LabelEncoder) Classes() []string {
	return l.classes
}

func (l *LabelEncoder) Len() int {
	return len(l.classes)
}
