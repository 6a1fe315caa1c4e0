package services

import (
	"context"

	"github.com/google/uuid"

	redisclient "github.com/vellumcms/vellum-backend/internal/clients/redis"
	"github.com/vellumcms/vellum-backend/internal/platform/cmserr"
	"github.com/vellumcms/vellum-backend/internal/platform/logger"
	"github.com/vellumcms/vellum-backend/internal/repos"
	"github.com/vellumcms/vellum-backend/internal/schema"
	"github.com/vellumcms/vellum-backend/internal/types"
)

// LiveService reads the published snapshots of one record type. Live
// content is what the public site serves, so these reads take no token.
// Returned records carry a zero Meta: the snapshot is metadata-free.
type LiveService interface {
	Any(ctx context.Context, params *FindParams) (bool, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	Find(ctx context.Context, params *FindParams) ([]*types.Record, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Record, error)
}

type liveService struct {
	log   *logger.Logger
	def   *schema.TypeDef
	live  repos.LiveRepo
	cache *redisclient.LiveCache
}

func newLiveService(baseLog *logger.Logger, def *schema.TypeDef, live repos.LiveRepo, cache *redisclient.LiveCache) LiveService {
	return &liveService{
		log:   baseLog.With("service", "LiveService", "record_type", def.Name),
		def:   def,
		live:  live,
		cache: cache,
	}
}

func (ls *liveService) Any(ctx context.Context, params *FindParams) (bool, error) {
	count, err := ls.Count(ctx, params)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (ls *liveService) Count(ctx context.Context, params *FindParams) (int64, error) {
	if params == nil || params.Where == nil {
		count, err := ls.live.Count(ctx, nil, ls.def.Name)
		if err != nil {
			return 0, cmserr.Storage(err)
		}
		return count, nil
	}
	records, err := ls.Find(ctx, &FindParams{Where: params.Where})
	if err != nil {
		return 0, err
	}
	return int64(len(records)), nil
}

func (ls *liveService) Find(ctx context.Context, params *FindParams) ([]*types.Record, error) {
	rows, err := ls.live.ListByType(ctx, nil, ls.def.Name)
	if err != nil {
		return nil, cmserr.Storage(err)
	}

	records := make([]*types.Record, 0, len(rows))
	for _, row := range rows {
		fields, err := row.Payload()
		if err != nil {
			return nil, cmserr.Storage(err)
		}
		records = append(records, &types.Record{ID: row.ID, Type: row.Type, Fields: fields})
	}

	if params == nil {
		return records, nil
	}
	records = applyFilter(records, params.Where)
	applySort(records, params.Sort)
	records = applyPagination(records, params.Skip, params.Limit)
	for _, rec := range records {
		applySelect(rec, params.Select)
	}
	return records, nil
}

func (ls *liveService) Get(ctx context.Context, id uuid.UUID) (*types.Record, error) {
	if id == uuid.Nil {
		return nil, cmserr.MissingID()
	}

	if ls.cache != nil {
		fields, hit, err := ls.cache.Get(ctx, ls.def.Name, id)
		if err != nil {
			ls.log.Warn("live cache read failed", "id", id, "error", err)
		} else if hit {
			return &types.Record{ID: id, Type: ls.def.Name, Fields: fields}, nil
		}
	}

	row, err := ls.live.Get(ctx, nil, id)
	if err != nil {
		return nil, cmserr.Storage(err)
	}
	if row == nil {
		return nil, nil
	}
	fields, err := row.Payload()
	if err != nil {
		return nil, cmserr.Storage(err)
	}
	if ls.cache != nil {
		if err := ls.cache.Set(ctx, row); err != nil {
			ls.log.Warn("live cache set failed", "id", id, "error", err)
		}
	}
	return &types.Record{ID: row.ID, Type: row.Type, Fields: fields}, nil
}
