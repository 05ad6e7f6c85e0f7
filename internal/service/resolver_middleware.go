package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/webitel/hose-relay/internal/domain/model"
)

// ResolverMiddleware implements [DECORATOR_PATTERN] to add observability
// to DID resolution without touching lookup logic.
type ResolverMiddleware struct {
	Next   DIDResolver
	Logger *slog.Logger
}

// NewResolverMiddleware creates a new logging decorator for the DIDResolver.
func NewResolverMiddleware(next DIDResolver, logger *slog.Logger) DIDResolver {
	return &ResolverMiddleware{
		Next:   next,
		Logger: logger,
	}
}

func (m *ResolverMiddleware) Resolve(ctx context.Context, did string) (*model.DIDDocument, error) {
	start := time.Now()

	doc, err := m.Next.Resolve(ctx, did)
	if err != nil {
		m.Logger.Warn("DID_RESOLUTION_FAILED",
			"did", did,
			"err", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	return doc, err
}

// ResolveMany wraps the concurrent lookup with timing and outcome logging.
func (m *ResolverMiddleware) ResolveMany(ctx context.Context, dids []string) (map[string]*model.DIDDocument, error) {
	start := time.Now()

	docs, err := m.Next.ResolveMany(ctx, dids)

	duration := time.Since(start)
	if err != nil {
		m.Logger.Error("DID_RESOLUTION_BATCH_FAILED",
			"err", err,
			"count", len(dids),
			"duration_ms", duration.Milliseconds(),
		)
	} else {
		m.Logger.Debug("DID_RESOLUTION_BATCH_COMPLETED",
			"count", len(dids),
			"duration_ms", duration.Milliseconds(),
		)
	}

	return docs, err
}
