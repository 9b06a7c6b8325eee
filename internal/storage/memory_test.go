package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/mind-bot/internal/models"
)

func TestMemoryStorageTagCounts(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	for i, tag := range []string{"anxious", "greeting", "anxious"} {
		require.NoError(t, s.SaveExchange(ctx, &models.Exchange{
			ID:           fmt.Sprintf("id-%d", i),
			Channel:      models.HTTPChannel,
			LanguageCode: "en",
			Tag:          tag,
		}))
	}

	counts, err := s.TagCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"anxious": 2, "greeting": 1}, counts)

	// returned map is a snapshot
	counts["anxious"] = 100
	counts, err = s.TagCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts["anxious"])
}

func TestMemoryStorageDuplicateID(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()
	ex := &models.Exchange{ID: "same", Tag: "sad"}

	require.NoError(t, s.SaveExchange(ctx, ex))
	require.NoError(t, s.SaveExchange(ctx, ex))

	counts, err := s.TagCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts["sad"])
}

func TestMemoryStorageBoundedWindow(t *testing.T) {
	s, err := NewMemoryStorageWithWindow(2)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		require.NoError(t, s.SaveExchange(ctx, &models.Exchange{ID: fmt.Sprintf("id-%d", i), Tag: "sad"}))
	}
	assert.Equal(t, 2, s.seen.Len())

	// recent ids are still deduplicated
	require.NoError(t, s.SaveExchange(ctx, &models.Exchange{ID: "id-999", Tag: "sad"}))
	counts, err := s.TagCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), counts["sad"])

	// ids that left the window count again
	require.NoError(t, s.SaveExchange(ctx, &models.Exchange{ID: "id-0", Tag: "sad"}))
	counts, err = s.TagCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), counts["sad"])

	_, err = NewMemoryStorageWithWindow(0)
	assert.Error(t, err)
}

func TestMemoryStorageRejectsInvalid(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	assert.ErrorIs(t, s.SaveExchange(ctx, nil), ErrInvalidExchange)
	assert.ErrorIs(t, s.SaveExchange(ctx, &models.Exchange{Tag: "x"}), ErrInvalidExchange)
	assert.ErrorIs(t, s.SaveExchange(ctx, &models.Exchange{ID: "x"}), ErrInvalidExchange)
}

func TestMemoryStorageConcurrent(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.SaveExchange(ctx, &models.Exchange{ID: fmt.Sprintf("%d", i), Tag: "greeting"})
		}(i)
	}
	wg.Wait()

	counts, err := s.TagCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(50), counts["greeting"])
}

func TestDatabaseConfigDSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "mind", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=mind sslmode=disable", cfg.DSN())
}
