package storage

import (
	"context"
	"errors"

	"github.com/xaenox/mind-bot/internal/models"
)

var ErrInvalidExchange = errors.New("exchange id and tag are required")

// Storage records answered exchanges and aggregates them per tag.
type Storage interface {
	SaveExchange(ctx context.Context, exchange *models.Exchange) error
	TagCounts(ctx context.Context) (map[string]int64, error)
	Close() error
}

func validateExchange(exchange *models.Exchange) error {
	if exchange == nil || exchange.ID == "" || exchange.Tag == "" {
		return ErrInvalidExchange
	}
	return nil
}
