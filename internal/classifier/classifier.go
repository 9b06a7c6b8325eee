package classifier

import (
	"context"
	"fmt"
)

// Prediction is the classifier's answer for one text.
type Prediction struct {
	Tag        string
	LabelID    int
	Confidence float64
}

// Classifier maps normalized pivot-language text to an intent tag.
type Classifier interface {
	Classify(ctx context.Context, text string) (Prediction, error)
}

// IntentClassifier is the trained model together with its tokenizer and label
// mapping. It never mutates after construction.
type IntentClassifier struct {
	encoder *TextEncoder
	labels  *LabelEncoder
	model   *Model
}

func NewIntentClassifier(encoder *TextEncoder, labels *LabelEncoder, model *Model) *IntentClassifier {
	return &IntentClassifier{
		encoder: encoder,
		labels:  labels,
		model:   model,
	}
}

// Classify returns the argmax tag. There is no confidence threshold: a low-scoring
// prediction is still returned.
func (c *IntentClassifier) Classify(ctx context.Context, text string) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	id, probs, err := c.model.Predict(c.encoder.Encode(text))
	if err != nil {
		return Prediction{}, err
	}
	tag, err := c.labels.Decode(id)
	if err != nil {
		return Prediction{}, fmt.Errorf("decode prediction: %w", err)
	}
	return Prediction{Tag: tag, LabelID: id, Confidence: probs[id]}, nil
}
