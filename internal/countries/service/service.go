// Package service answers country queries from the snapshot and the upstream detail lookup.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"atlas/internal/countries/models"
	"atlas/internal/countries/upstream"
	dErrors "atlas/pkg/domain-errors"
	s "atlas/pkg/string"
)

// Defaults applied when a caller passes a non-positive page or limit.
const (
	DefaultPage  = 1
	DefaultLimit = 20
)

// Snapshot provides the full country list.
type Snapshot interface {
	Get(ctx context.Context) ([]upstream.Country, error)
}

// Lookup fetches a single country directly from upstream.
type Lookup interface {
	FetchByCode(ctx context.Context, code string) (*upstream.Country, error)
}

type Service struct {
	snapshot Snapshot
	lookup   Lookup
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(snapshot Snapshot, lookup Lookup, opts ...Option) *Service {
	svc := &Service{
		snapshot: snapshot,
		lookup:   lookup,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// ListPage returns one page of the name-sorted snapshot. Pages past the end are empty.
func (svc *Service) ListPage(ctx context.Context, page, limit int) ([]models.Country, error) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}

	all, err := svc.snapshot.Get(ctx)
	if err != nil {
		return nil, translateError(err, "failed to load countries")
	}

	// Compare before multiplying: page and limit come from the query string.
	if len(all) == 0 || page-1 > (len(all)-1)/limit {
		return []models.Country{}, nil
	}
	start := (page - 1) * limit
	end := start + min(limit, len(all)-start)
	return toCountries(sortByName(all)[start:end]), nil
}

// GetByCode returns the extended record for code. It bypasses the snapshot.
func (svc *Service) GetByCode(ctx context.Context, code string) (*models.Country, error) {
	country, err := svc.lookup.FetchByCode(ctx, code)
	if err != nil {
		if upstream.CategoryOf(err) == upstream.ErrorNotFound {
			svc.logger.DebugContext(ctx, "country not found upstream", "code", code)
		}
		return nil, translateError(err, "failed to fetch country")
	}
	out := toCountryDetail(*country)
	return &out, nil
}

// ListByRegion returns the countries whose region equals region, ignoring case.
// An unknown region yields an empty list.
func (svc *Service) ListByRegion(ctx context.Context, region string) ([]models.Country, error) {
	all, err := svc.snapshot.Get(ctx)
	if err != nil {
		return nil, translateError(err, "failed to load countries")
	}

	region = strings.TrimSpace(region)
	matched := make([]upstream.Country, 0)
	for _, c := range all {
		if strings.EqualFold(c.Region, region) {
			matched = append(matched, c)
		}
	}
	return toCountries(sortByName(matched)), nil
}

// Search applies every non-empty filter in params. Empty params return the whole snapshot.
func (svc *Service) Search(ctx context.Context, params models.SearchParams) ([]models.Country, error) {
	all, err := svc.snapshot.Get(ctx)
	if err != nil {
		return nil, translateError(err, "failed to load countries")
	}

	params.Normalize()
	if params.Empty() {
		return toCountries(sortByName(all)), nil
	}
	matched := make([]upstream.Country, 0, len(all))
	for _, c := range all {
		if matches(c, params) {
			matched = append(matched, c)
		}
	}
	return toCountries(sortByName(matched)), nil
}

func matches(c upstream.Country, p models.SearchParams) bool {
	if p.Name != "" && !s.ContainsFold(c.Name.Common, p.Name) {
		return false
	}
	if p.Capital != "" && !s.AnyContainsFold(c.Capital, p.Capital) {
		return false
	}
	if p.Region != "" && !strings.EqualFold(c.Region, p.Region) {
		return false
	}
	if p.Timezone != "" && !s.AnyContainsFold(c.Timezones, p.Timezone) {
		return false
	}
	return true
}

// translateError maps upstream and context failures onto domain codes.
func translateError(err error, msg string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	}
	switch upstream.CategoryOf(err) {
	case upstream.ErrorNotFound:
		return dErrors.Wrap(err, dErrors.CodeNotFound, "Country not found")
	case upstream.ErrorTimeout:
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	case upstream.ErrorUnavailable, upstream.ErrorRateLimited:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
