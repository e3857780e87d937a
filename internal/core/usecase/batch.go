package usecase

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/document-structurer/internal/core/domain"
)

// ProcessBatch processes paths with at most concurrency documents in
// flight. Items keep input order and one failure never stops the rest.
func (uc *ProcessDocumentUseCase) ProcessBatch(ctx context.Context, paths []string, concurrency int) []domain.BatchItem {
	if concurrency <= 0 {
		concurrency = 1
	}
	items := make([]domain.BatchItem, len(paths))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, path := range paths {
		g.Go(func() error {
			result, err := uc.ProcessDocument(ctx, path)
			var empty *domain.EmptyContentError
			if errors.As(err, &empty) {
				result = empty.Partial
			}
			items[i] = domain.BatchItem{Path: path, Result: result, Err: err}
			if err != nil {
				uc.logger.Warn("batch_item_failed", "path", path, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, item := range items {
		if item.Failed() {
			failed++
		}
	}
	uc.logger.Info("batch_processed", "total", len(items), "failed", failed, "concurrency", concurrency)
	return items
}
