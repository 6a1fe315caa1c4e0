package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/vellumcms/vellum-backend/internal/platform/cmserr"
	"github.com/vellumcms/vellum-backend/internal/schema"
	"github.com/vellumcms/vellum-backend/internal/types"
)

// ItemService is the singleton flavor of the record facade: one well-known
// row per record type, addressed by the type name. Every operation resolves
// the row's id first and then delegates to the list implementation
// unchanged. History operations require an explicit version: item identity
// is the type name, and an implicit "one back" hides caller bugs.
type ItemService interface {
	Get(ctx context.Context, token string, params *GetParams) (*types.Record, error)
	Update(ctx context.Context, token string, fields types.Fields) (*types.Record, error)
	Patch(ctx context.Context, token string, partial types.Fields) (*types.Record, error)

	IsLive(ctx context.Context, token string) (bool, error)
	Publish(ctx context.Context, token string) (types.Fields, error)
	Unpublish(ctx context.Context, token string) (types.Fields, error)

	History(ctx context.Context, token string) ([]*types.HistoryEntry, error)
	PreviewRollback(ctx context.Context, token string, version *int) (*types.Record, error)
	Rollback(ctx context.Context, token string, version *int) (*types.Record, error)

	Describe(ctx context.Context, token string) (schema.Info, error)

	LiveGet(ctx context.Context) (*types.Record, error)
}

type itemService struct {
	records *recordService
}

func newItemService(records *recordService) ItemService {
	return &itemService{records: records}
}

// resolve looks up the singleton row for the type.
func (is *itemService) resolve(ctx context.Context) (uuid.UUID, error) {
	row, err := is.records.drafts.GetSingleton(ctx, nil, is.records.def.Name)
	if err != nil {
		return uuid.Nil, cmserr.Storage(err)
	}
	if row == nil {
		return uuid.Nil, cmserr.NotFound(is.records.def.Name, is.records.def.Name)
	}
	return row.ID, nil
}

func (is *itemService) Get(ctx context.Context, token string, params *GetParams) (*types.Record, error) {
	if _, err := is.records.tokens.Validate(ctx, token); err != nil {
		return nil, err
	}
	id, err := is.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return is.records.get(ctx, id, params)
}

func (is *itemService) Update(ctx context.Context, token string, fields types.Fields) (*types.Record, error) {
	userID, err := is.records.tokens.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	id, err := is.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return is.records.update(ctx, userID, id, fields)
}

func (is *itemService) Patch(ctx context.Context, token string, partial types.Fields) (*types.Record, error) {
	userID, err := is.records.tokens.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	if len(partial) == 0 {
		return nil, cmserr.MissingItem()
	}
	id, err := is.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return is.records.mutate(ctx, userID, id, partial, mutatePatch)
}

func (is *itemService) IsLive(ctx context.Context, token string) (bool, error) {
	if _, err := is.records.tokens.Validate(ctx, token); err != nil {
		return false, err
	}
	id, err := is.resolve(ctx)
	if err != nil {
		return false, err
	}
	exists, err := is.records.live.Exists(ctx, nil, id)
	if err != nil {
		return false, cmserr.Storage(err)
	}
	return exists, nil
}

func (is *itemService) Publish(ctx context.Context, token string) (types.Fields, error) {
	if _, err := is.records.tokens.Validate(ctx, token); err != nil {
		return nil, err
	}
	id, err := is.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return is.records.publish(ctx, id)
}

func (is *itemService) Unpublish(ctx context.Context, token string) (types.Fields, error) {
	if _, err := is.records.tokens.Validate(ctx, token); err != nil {
		return nil, err
	}
	id, err := is.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return is.records.unpublish(ctx, id)
}

func (is *itemService) History(ctx context.Context, token string) ([]*types.HistoryEntry, error) {
	if _, err := is.records.tokens.Validate(ctx, token); err != nil {
		return nil, err
	}
	id, err := is.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return is.records.historyFor(ctx, id)
}

func (is *itemService) PreviewRollback(ctx context.Context, token string, version *int) (*types.Record, error) {
	userID, err := is.records.tokens.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, cmserr.MissingVersion()
	}
	id, err := is.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return is.records.previewRollback(ctx, userID, id, version)
}

func (is *itemService) Rollback(ctx context.Context, token string, version *int) (*types.Record, error) {
	userID, err := is.records.tokens.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, cmserr.MissingVersion()
	}
	id, err := is.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return is.records.rollback(ctx, userID, id, version)
}

func (is *itemService) Describe(ctx context.Context, token string) (schema.Info, error) {
	if _, err := is.records.tokens.Validate(ctx, token); err != nil {
		return schema.Info{}, err
	}
	return is.records.def.Describe(), nil
}

func (is *itemService) LiveGet(ctx context.Context) (*types.Record, error) {
	id, err := is.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return is.records.lives.Get(ctx, id)
}
