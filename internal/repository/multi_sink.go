package repository

import (
	"context"
	"errors"

	"StratTick/internal/domain/models"
	domrepo "StratTick/internal/domain/repository"
)

// MultiSink publishes to every sink and joins their errors.
type MultiSink []domrepo.BatchSink

func (m MultiSink) Publish(ctx context.Context, b *models.RecommendationBatch) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
