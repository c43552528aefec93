package coingecko

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"Spotter/models"
)

type cacheFile struct {
	TopTokens    []string          `json:"top_tokens"`
	TopExchanges []models.Exchange `json:"top_exchanges"`
	Timestamp    float64           `json:"timestamp"` // unix seconds
}

// UniverseCache persists the last fetched universe so a restart inside the TTL
// window does not refetch it.
type UniverseCache struct {
	path   string
	ttl    time.Duration
	logger *slog.Logger
}

// NewUniverseCache creates a cache backed by the file at path.
func NewUniverseCache(path string, ttl time.Duration, logger *slog.Logger) *UniverseCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &UniverseCache{path: path, ttl: ttl, logger: logger}
}

// Load returns the cached universe if it was written less than ttl before now.
// A missing, unreadable, or expired file is a miss.
func (uc *UniverseCache) Load(now time.Time) (models.Universe, bool) {
	data, err := os.ReadFile(uc.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			uc.logger.Warn("read universe cache", "path", uc.path, "err", err)
		}
		return models.Universe{}, false
	}

	var cf cacheFile
	if err := json.Unmarshal(data, &cf); err != nil {
		uc.logger.Warn("decode universe cache", "path", uc.path, "err", err)
		return models.Universe{}, false
	}

	sec, frac := math.Modf(cf.Timestamp)
	written := time.Unix(int64(sec), int64(frac*float64(time.Second)))
	if now.Sub(written) >= uc.ttl {
		uc.logger.Debug("universe cache expired", "written", written)
		return models.Universe{}, false
	}

	u := models.Universe{Tokens: cf.TopTokens, Exchanges: cf.TopExchanges}
	if u.Empty() {
		return models.Universe{}, false
	}
	uc.logger.Info("using cached tokens and exchanges",
		"tokens", len(u.Tokens),
		"exchanges", len(u.Exchanges),
	)
	return u, true
}

// Save writes the universe with timestamp now. The file is replaced atomically.
func (uc *UniverseCache) Save(u models.Universe, now time.Time) error {
	data, err := json.Marshal(cacheFile{
		TopTokens:    u.Tokens,
		TopExchanges: u.Exchanges,
		Timestamp:    float64(now.UnixNano()) / float64(time.Second),
	})
	if err != nil {
		return fmt.Errorf("encode universe cache: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(uc.path), ".universe-*.json")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), uc.path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}

	uc.logger.Info("cached tokens and exchanges", "path", uc.path)
	return nil
}
