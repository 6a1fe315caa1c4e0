package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	redisclient "github.com/vellumcms/vellum-backend/internal/clients/redis"
	"github.com/vellumcms/vellum-backend/internal/platform/cmserr"
	"github.com/vellumcms/vellum-backend/internal/platform/logger"
	"github.com/vellumcms/vellum-backend/internal/repos"
	"github.com/vellumcms/vellum-backend/internal/schema"
	"github.com/vellumcms/vellum-backend/internal/types"
)

// Registry holds one service per declared record type. It is built once
// at startup and passed around explicitly; there is no ambient global
// state anywhere in the engine.
type Registry struct {
	Lists map[string]RecordService
	Items map[string]ItemService
}

func NewRegistry(
	ctx context.Context,
	db *gorm.DB,
	baseLog *logger.Logger,
	reg *schema.Registry,
	tokens TokenValidator,
	cache *redisclient.LiveCache,
) (*Registry, error) {
	log := baseLog.With("service", "Registry")

	drafts := repos.NewDraftRepo(db, baseLog)
	history := repos.NewHistoryRepo(db, baseLog)
	live := repos.NewLiveRepo(db, baseLog)

	out := &Registry{
		Lists: map[string]RecordService{},
		Items: map[string]ItemService{},
	}
	for _, def := range reg.Types() {
		rs := newRecordService(db, baseLog, def, drafts, history, live, tokens, cache)
		switch def.Kind {
		case schema.KindItem:
			if err := seedSingleton(ctx, db, rs); err != nil {
				return nil, err
			}
			out.Items[def.Name] = newItemService(rs)
		default:
			out.Lists[def.Name] = rs
		}
		log.Debug("record type registered", "record_type", def.Name, "kind", def.Kind)
	}
	return out, nil
}

// seedSingleton makes sure an item type's single row exists, created from
// its declared defaults. The singleton is born unowned; the first real
// mutation stamps a user signature over `updated`.
func seedSingleton(ctx context.Context, db *gorm.DB, rs *recordService) error {
	row, err := rs.drafts.GetSingleton(ctx, nil, rs.def.Name)
	if err != nil {
		return cmserr.Storage(err)
	}
	if row != nil {
		return nil
	}

	signature := stamp(uuid.Nil)
	rec := &types.Record{
		ID:     uuid.New(),
		Type:   rs.def.Name,
		Fields: rs.def.ApplyDefaults(types.Fields{}),
		Meta: types.Meta{
			Version: 1,
			Created: signature,
			Updated: signature,
		},
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return rs.insert(ctx, tx, rec)
	})
}
