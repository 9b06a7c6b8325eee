package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelRoundTrip(t *testing.T) {
	labels := FitLabels([]string{"sad", "greeting", "anxious", "greeting", "sad"})

	require.Equal(t, 3, labels.Len())
	assert.Equal(t, []string{"anxious", "greeting", "sad"}, labels.Classes())

	for _, tag := range []string{"sad", "greeting", "anxious"} {
		id, err := labels.Encode(tag)
		require.NoError(t, err)
		decoded, err := labels.Decode(id)
		require.NoError(t, err)
		assert.Equal(t, tag, decoded)
	}
}

func TestLabelErrors(t *testing.T) {
	labels := FitLabels([]string{"greeting"})

	_, err := labels.Encode("goodbye")
	assert.ErrorIs(t, err, ErrUnknownLabel)

	_, err = labels.Decode(1)
	assert.ErrorIs(t, err, ErrLabelOutOfRange)
	_, err = labels.Decode(-1)
	assert.ErrorIs(t, err, ErrLabelOutOfRange)
}

func TestLabelsIgnoreCorpusOrder(t *testing.T) {
	a := FitLabels([]string{"b", "a", "c"})
	b := FitLabels([]string{"c", "b", "a"})
	assert.Equal(t, a.Classes(), b.Classes())

	restored := NewLabelEncoder(a.Classes())
	id, err := restored.Encode("c")
	require.NoError(t, err)
	assert.Equal(t, 2, id)
}
