package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sony/gobreaker"
	"github.com/webitel/hose-relay/config"
	"github.com/webitel/hose-relay/internal/domain/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("hose-relay/service")

var (
	ErrInvalidDID    = errors.New("invalid did")
	ErrDIDNotFound   = errors.New("did not found")
	ErrDIDResolution = errors.New("did resolution failed")
)

// maxBatch bounds a single ResolveMany call.
const maxBatch = 25

// DIDResolver defines the contract for DID document lookups.
type DIDResolver interface {
	// Resolve fetches and validates the document for one did:plc identifier.
	Resolve(ctx context.Context, did string) (*model.DIDDocument, error)
	// ResolveMany resolves several DIDs concurrently; any failure fails the batch.
	ResolveMany(ctx context.Context, dids []string) (map[string]*model.DIDDocument, error)
}

// LookupRecorder counts resolutions. *metrics.Metrics implements it.
type LookupRecorder interface {
	DIDLookup(cached bool, err error)
}

type nopLookups struct{}

func (nopLookups) DIDLookup(bool, error) {}

type PLCResolver struct {
	directory string
	client    *http.Client
	cache     *lru.Cache[string, *model.DIDDocument]
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	recorder  LookupRecorder
}

// NewPLCResolver provides a thread-safe resolver with an internal LRU cache.
// Documents are cached until evicted; a stale handle is acceptable for display.
func NewPLCResolver(cfg *config.Config, recorder LookupRecorder, logger *slog.Logger) (*PLCResolver, error) {
	cache, err := lru.New[string, *model.DIDDocument](cfg.DID.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("did cache: %w", err)
	}

	if recorder == nil {
		recorder = nopLookups{}
	}

	limit := rate.Inf
	if cfg.DID.RPS > 0 {
		limit = rate.Limit(cfg.DID.RPS)
	}

	return &PLCResolver{
		directory: strings.TrimRight(cfg.DID.Directory, "/"),
		client:    &http.Client{Timeout: cfg.DID.Timeout},
		cache:     cache,
		limiter:   rate.NewLimiter(limit, max(int(cfg.DID.RPS), 1)),
		breaker:   newBreaker("did-directory", logger),
		recorder:  recorder,
	}, nil
}

// ValidateDID accepts did:plc identifiers with exactly two separators.
func ValidateDID(did string) error {
	if !strings.HasPrefix(did, "did:plc:") {
		return fmt.Errorf("%w: must start with did:plc:", ErrInvalidDID)
	}
	if strings.Count(did, ":") != 2 || did == "did:plc:" {
		return fmt.Errorf("%w: must contain exactly two ':' separators", ErrInvalidDID)
	}
	return nil
}

// Resolve orchestrates the cache-aside lookup.
func (r *PLCResolver) Resolve(ctx context.Context, did string) (*model.DIDDocument, error) {
	ctx, span := tracer.Start(ctx, "PLCResolver.Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("did", did))

	if err := ValidateDID(did); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// [HOT_PATH] Documents are immutable enough for display; serve from cache.
	if doc, ok := r.cache.Get(did); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		r.recorder.DIDLookup(true, nil)
		return doc, nil
	}

	res, err := r.breaker.Execute(func() (interface{}, error) {
		return r.fetch(ctx, did)
	})
	r.recorder.DIDLookup(false, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	doc := res.(*model.DIDDocument)
	r.cache.Add(did, doc)
	return doc, nil
}

// ResolveMany runs lookups in parallel.
// [CONCURRENCY_OPTIMIZATION] errgroup cancels the rest on the first failure.
func (r *PLCResolver) ResolveMany(ctx context.Context, dids []string) (map[string]*model.DIDDocument, error) {
	if len(dids) > maxBatch {
		return nil, fmt.Errorf("%w: at most %d dids per request", ErrInvalidDID, maxBatch)
	}

	docs := make([]*model.DIDDocument, len(dids))
	g, gctx := errgroup.WithContext(ctx)
	for i, did := range dids {
		g.Go(func() error {
			doc, err := r.Resolve(gctx, did)
			if err != nil {
				return fmt.Errorf("%s: %w", did, err)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*model.DIDDocument, len(dids))
	for i, did := range dids {
		out[did] = docs[i]
	}
	return out, nil
}

func (r *PLCResolver) fetch(ctx context.Context, did string) (*model.DIDDocument, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDIDResolution, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.directory+"/"+url.PathEscape(did), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDIDResolution, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return nil, neutralError{fmt.Errorf("%w: %s", ErrDIDNotFound, did)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: %s", ErrDIDResolution, resp.Status)
	}

	var doc model.DIDDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrDIDResolution, err)
	}
	if doc.ID == "" || doc.Context == nil {
		return nil, fmt.Errorf("%w: missing id or @context", ErrDIDResolution)
	}
	return &doc, nil
}
