package translate

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	translationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindbot_translation_requests_total",
			Help: "Total number of translation requests",
		},
		[]string{"engine", "status"},
	)

	translationRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mindbot_translation_request_duration_seconds",
			Help:    "Duration of translation requests in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		},
		[]string{"engine", "status"},
	)
)

const (
	statusSuccess = "success"
	statusError   = "error"
	statusSkipped = "skipped"
)

// Instrumented records metrics around a backend and skips the call entirely when
// source and target resolve to the same language.
type Instrumented struct {
	next   Translator
	engine string
	mapper *LanguageMapper
}

func NewInstrumented(next Translator, engine EngineType) *Instrumented {
	return &Instrumented{next: next, engine: string(engine), mapper: NewLanguageMapper()}
}

func (i *Instrumented) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if i.mapper.SameLanguage(sourceLang, targetLang) {
		translationRequestsTotal.WithLabelValues(i.engine, statusSkipped).Inc()
		return text, nil
	}

	start := time.Now()
	out, err := i.next.Translate(ctx, text, sourceLang, targetLang)
	status := statusSuccess
	if err != nil {
		status = statusError
	}
	translationRequestsTotal.WithLabelValues(i.engine, status).Inc()
	translationRequestDuration.WithLabelValues(i.engine, status).Observe(time.Since(start).Seconds())
	return out, err
}

func (i *Instrumented) CheckHealth(ctx context.Context) error {
	return i.next.CheckHealth(ctx)
}

func (i *Instrumented) SupportedLanguages(ctx context.Context) ([]string, error) {
	return i.next.SupportedLanguages(ctx)
}
