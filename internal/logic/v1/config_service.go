package v1

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/config-service/internal/core/domain"
	"github.com/duynhne/config-service/middleware"
)

// ConfigService manages the key/value configuration store.
type ConfigService struct {
	repo domain.ConfigRepository
}

// NewConfigService creates a new ConfigService.
func NewConfigService(repo domain.ConfigRepository) *ConfigService {
	return &ConfigService{repo: repo}
}

// GetAll returns every configuration pair.
func (s *ConfigService) GetAll(ctx context.Context) ([]domain.ConfigPair, error) {
	ctx, span := middleware.StartSpan(ctx, "config.get_all", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	pairs, err := s.repo.GetAll(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query config: %w", err)
	}
	return pairs, nil
}

// Get returns the pair for key.
func (s *ConfigService) Get(ctx context.Context, key string) (*domain.ConfigPair, error) {
	ctx, span := middleware.StartSpan(ctx, "config.get", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("config.key", key),
	))
	defer span.End()

	pair, err := s.repo.Get(ctx, key)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query config %q: %w", key, err)
	}
	if pair == nil {
		return nil, fmt.Errorf("no value found for config key %q: %w", key, ErrConfigNotFound)
	}
	return pair, nil
}

// Set inserts or replaces a pair.
func (s *ConfigService) Set(ctx context.Context, pair domain.ConfigPair) error {
	ctx, span := middleware.StartSpan(ctx, "config.set", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("config.key", pair.Key),
	))
	defer span.End()

	key := strings.TrimSpace(pair.Key)
	if key == "" {
		return fmt.Errorf("set config: empty key: %w", ErrInvalidInput)
	}

	if err := s.repo.Set(ctx, key, pair.Value); err != nil {
		span.RecordError(err)
		return fmt.Errorf("upsert config %q: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *ConfigService) Delete(ctx context.Context, key string) error {
	ctx, span := middleware.StartSpan(ctx, "config.delete", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("config.key", key),
	))
	defer span.End()

	removed, err := s.repo.Delete(ctx, key)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete config %q: %w", key, err)
	}
	if !removed {
		return fmt.Errorf("delete config %q: %w", key, ErrConfigNotFound)
	}
	return nil
}
