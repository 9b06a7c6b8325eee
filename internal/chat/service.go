package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/xaenox/mind-bot/internal/classifier"
	"github.com/xaenox/mind-bot/internal/corpus"
	"github.com/xaenox/mind-bot/internal/models"
	"github.com/xaenox/mind-bot/internal/responder"
	"github.com/xaenox/mind-bot/internal/storage"
	"github.com/xaenox/mind-bot/internal/translate"
	"go.uber.org/zap"
)

var intentPredictionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "mindbot_intent_predictions_total",
		Help: "Total number of predicted intents by tag and channel",
	},
	[]string{"tag", "channel"},
)

// Request is one incoming message, whatever front-end it came from.
type Request struct {
	Text         string
	LanguageCode string
	Channel      models.Channel
	UserID       int64
}

// Reply is the answer in the caller's language together with the prediction it
// was chosen for.
type Reply struct {
	Response   string
	Tag        string
	Confidence float64
}

// Service runs the chat pipeline: translate to the pivot language, normalize,
// classify, pick a response and translate it back. It holds no per-request
// state and is safe for concurrent use.
type Service struct {
	translator translate.Translator
	classifier classifier.Classifier
	selector   *responder.Selector
	store      storage.Storage
	pivot      string
	logger     *zap.Logger
}

// NewService wires the pipeline. store may be nil, in which case exchanges are
// not recorded.
func NewService(
	translator translate.Translator,
	clf classifier.Classifier,
	selector *responder.Selector,
	store storage.Storage,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		translator: translator,
		classifier: clf,
		selector:   selector,
		store:      store,
		pivot:      translate.PivotLanguage,
		logger:     logger,
	}
}

func (s *Service) Respond(ctx context.Context, req Request) (*Reply, error) {
	translated, err := s.translator.Translate(ctx, req.Text, req.LanguageCode, s.pivot)
	if err != nil {
		return nil, fmt.Errorf("translate input: %w", err)
	}

	prediction, err := s.classifier.Classify(ctx, corpus.Normalize(translated))
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	s.logger.Info("Predicted intent",
		zap.String("tag", prediction.Tag),
		zap.Float64("confidence", prediction.Confidence),
		zap.String("language_code", req.LanguageCode),
		zap.String("channel", string(req.Channel)))
	intentPredictionsTotal.WithLabelValues(prediction.Tag, string(req.Channel)).Inc()

	response := s.selector.Select(prediction.Tag)

	localized, err := s.translator.Translate(ctx, response, s.pivot, req.LanguageCode)
	if err != nil {
		return nil, fmt.Errorf("translate response: %w", err)
	}

	s.record(ctx, req, prediction)

	return &Reply{
		Response:   localized,
		Tag:        prediction.Tag,
		Confidence: prediction.Confidence,
	}, nil
}

// Stats aggregates the recorded exchanges.
func (s *Service) Stats(ctx context.Context) (*models.StatsResponse, error) {
	stats := &models.StatsResponse{Tags: map[string]int64{}}
	if s.store == nil {
		return stats, nil
	}

	counts, err := s.store.TagCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("tag counts: %w", err)
	}
	for tag, n := range counts {
		stats.Tags[tag] = n
		stats.Total += n
	}
	return stats, nil
}

// CheckHealth reports whether the translation backend is reachable.
func (s *Service) CheckHealth(ctx context.Context) error {
	return s.translator.CheckHealth(ctx)
}

func (s *Service) record(ctx context.Context, req Request, prediction classifier.Prediction) {
	if s.store == nil {
		return
	}

	exchange := &models.Exchange{
		ID:           uuid.New().String(),
		Channel:      req.Channel,
		UserID:       req.UserID,
		LanguageCode: req.LanguageCode,
		Tag:          prediction.Tag,
		Confidence:   prediction.Confidence,
		CreatedAt:    time.Now(),
	}
	if err := s.store.SaveExchange(ctx, exchange); err != nil {
		s.logger.Error("Failed to save exchange",
			zap.Error(err),
			zap.String("exchange_id", exchange.ID),
			zap.String("tag", exchange.Tag))
	}
}
