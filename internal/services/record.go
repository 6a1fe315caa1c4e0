package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	redisclient "github.com/vellumcms/vellum-backend/internal/clients/redis"
	"github.com/vellumcms/vellum-backend/internal/diff"
	"github.com/vellumcms/vellum-backend/internal/platform/cmserr"
	"github.com/vellumcms/vellum-backend/internal/platform/logger"
	"github.com/vellumcms/vellum-backend/internal/repos"
	"github.com/vellumcms/vellum-backend/internal/schema"
	"github.com/vellumcms/vellum-backend/internal/types"
)

// RecordService is the public facade over one list record type: the draft
// store, the live store and the history log composed behind
// token-validated operations.
type RecordService interface {
	Any(ctx context.Context, token string, params *FindParams) (bool, error)
	Count(ctx context.Context, token string, params *FindParams) (int64, error)
	Find(ctx context.Context, token string, params *FindParams) ([]*types.Record, error)
	Get(ctx context.Context, token string, id uuid.UUID, params *GetParams) (*types.Record, error)

	Create(ctx context.Context, token string, fields types.Fields) (*types.Record, error)
	Update(ctx context.Context, token string, id uuid.UUID, fields types.Fields) (*types.Record, error)
	Patch(ctx context.Context, token string, id uuid.UUID, partial types.Fields) (*types.Record, error)
	Remove(ctx context.Context, token string, id uuid.UUID) (*types.Record, error)

	IsLive(ctx context.Context, token string, id uuid.UUID) (bool, error)
	Publish(ctx context.Context, token string, id uuid.UUID) (types.Fields, error)
	Unpublish(ctx context.Context, token string, id uuid.UUID) (types.Fields, error)

	History(ctx context.Context, token string, id uuid.UUID) ([]*types.HistoryEntry, error)
	PreviewRollback(ctx context.Context, token string, id uuid.UUID, version *int) (*types.Record, error)
	Rollback(ctx context.Context, token string, id uuid.UUID, version *int) (*types.Record, error)

	Describe(ctx context.Context, token string) (schema.Info, error)

	Live() LiveService
}

type recordService struct {
	db      *gorm.DB
	log     *logger.Logger
	def     *schema.TypeDef
	drafts  repos.DraftRepo
	history repos.HistoryRepo
	live    repos.LiveRepo
	tokens  TokenValidator
	cache   *redisclient.LiveCache
	lives   LiveService
}

func NewRecordService(
	db *gorm.DB,
	baseLog *logger.Logger,
	def *schema.TypeDef,
	drafts repos.DraftRepo,
	history repos.HistoryRepo,
	live repos.LiveRepo,
	tokens TokenValidator,
	cache *redisclient.LiveCache,
) RecordService {
	rs := newRecordService(db, baseLog, def, drafts, history, live, tokens, cache)
	return rs
}

func newRecordService(
	db *gorm.DB,
	baseLog *logger.Logger,
	def *schema.TypeDef,
	drafts repos.DraftRepo,
	history repos.HistoryRepo,
	live repos.LiveRepo,
	tokens TokenValidator,
	cache *redisclient.LiveCache,
) *recordService {
	rs := &recordService{
		db:      db,
		log:     baseLog.With("service", "RecordService", "record_type", def.Name),
		def:     def,
		drafts:  drafts,
		history: history,
		live:    live,
		tokens:  tokens,
		cache:   cache,
	}
	rs.lives = newLiveService(baseLog, def, live, cache)
	return rs
}

func stamp(userID uuid.UUID) types.Signature {
	return types.Signature{By: userID, At: time.Now().UTC()}
}

// --- reads ---

func (rs *recordService) Any(ctx context.Context, token string, params *FindParams) (bool, error) {
	count, err := rs.Count(ctx, token, params)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (rs *recordService) Count(ctx context.Context, token string, params *FindParams) (int64, error) {
	if _, err := rs.tokens.Validate(ctx, token); err != nil {
		return 0, err
	}
	if params == nil || params.Where == nil {
		count, err := rs.drafts.Count(ctx, nil, rs.def.Name)
		if err != nil {
			return 0, cmserr.Storage(err)
		}
		return count, nil
	}
	records, err := rs.findRecords(ctx, &FindParams{Where: params.Where})
	if err != nil {
		return 0, err
	}
	return int64(len(records)), nil
}

func (rs *recordService) Find(ctx context.Context, token string, params *FindParams) ([]*types.Record, error) {
	if _, err := rs.tokens.Validate(ctx, token); err != nil {
		return nil, err
	}
	return rs.findRecords(ctx, params)
}

func (rs *recordService) findRecords(ctx context.Context, params *FindParams) ([]*types.Record, error) {
	rows, err := rs.drafts.ListByType(ctx, nil, rs.def.Name)
	if err != nil {
		return nil, cmserr.Storage(err)
	}

	records := make([]*types.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.Record()
		if err != nil {
			return nil, cmserr.Storage(err)
		}
		rec.Fields = rs.def.ApplyDefaults(rec.Fields)
		records = append(records, rec)
	}

	if params == nil {
		return records, nil
	}
	records = applyFilter(records, params.Where)
	applySort(records, params.Sort)
	records = applyPagination(records, params.Skip, params.Limit)
	for _, rec := range records {
		if err := rs.populate(ctx, rec, params.Populate); err != nil {
			return nil, err
		}
		applySelect(rec, params.Select)
	}
	return records, nil
}

func (rs *recordService) Get(ctx context.Context, token string, id uuid.UUID, params *GetParams) (*types.Record, error) {
	if _, err := rs.tokens.Validate(ctx, token); err != nil {
		return nil, err
	}
	return rs.get(ctx, id, params)
}

func (rs *recordService) get(ctx context.Context, id uuid.UUID, params *GetParams) (*types.Record, error) {
	if id == uuid.Nil {
		return nil, cmserr.MissingID()
	}
	row, err := rs.drafts.GetByID(ctx, nil, id)
	if err != nil {
		return nil, cmserr.Storage(err)
	}
	if row == nil {
		return nil, nil
	}
	rec, err := row.Record()
	if err != nil {
		return nil, cmserr.Storage(err)
	}
	rec.Fields = rs.def.ApplyDefaults(rec.Fields)
	// A raw row that is still empty after the default merge is treated
	// as absent, not as a record.
	if len(rec.Fields) == 0 {
		return nil, nil
	}
	if params != nil {
		if err := rs.populate(ctx, rec, params.Populate); err != nil {
			return nil, err
		}
		applySelect(rec, params.Select)
	}
	return rec, nil
}

// populate resolves ref-valued fields to their draft records.
func (rs *recordService) populate(ctx context.Context, rec *types.Record, fields []string) error {
	for _, name := range fields {
		v, ok := rec.Fields[name]
		if !ok || v.Kind != types.KindRef || v.Ref == uuid.Nil {
			continue
		}
		row, err := rs.drafts.GetByID(ctx, nil, v.Ref)
		if err != nil {
			return cmserr.Storage(err)
		}
		if row == nil {
			continue
		}
		target, err := row.Record()
		if err != nil {
			return cmserr.Storage(err)
		}
		if rec.Expanded == nil {
			rec.Expanded = map[string]*types.Record{}
		}
		rec.Expanded[name] = target
	}
	return nil
}

// --- mutations ---

func (rs *recordService) Create(ctx context.Context, token string, fields types.Fields) (*types.Record, error) {
	userID, err := rs.tokens.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, cmserr.MissingItem()
	}
	return rs.create(ctx, userID, fields)
}

func (rs *recordService) create(ctx context.Context, userID uuid.UUID, fields types.Fields) (*types.Record, error) {
	fields = rs.def.ApplyDefaults(fields)
	if err := rs.def.Validate(fields); err != nil {
		return nil, err
	}

	signature := stamp(userID)
	rec := &types.Record{
		ID:     uuid.New(),
		Type:   rs.def.Name,
		Fields: fields,
		Meta: types.Meta{
			Version: 1,
			Created: signature,
			Updated: signature,
		},
	}

	err := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rs.checkUnique(ctx, tx, fields, uuid.Nil); err != nil {
			return err
		}
		return rs.insert(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}
	rs.log.Debug("record created", "id", rec.ID, "version", rec.Meta.Version)
	return rec, nil
}

// insert writes a fully formed record envelope, translating raw unique
// violations into the field-facing duplicate error.
func (rs *recordService) insert(ctx context.Context, tx *gorm.DB, rec *types.Record) error {
	row, err := types.DraftRow(rec)
	if err != nil {
		return cmserr.Storage(err)
	}
	if err := rs.drafts.Create(ctx, tx, row); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return cmserr.DuplicateKey(rs.def.Name, "id")
		}
		return cmserr.Storage(err)
	}
	return nil
}

func (rs *recordService) checkUnique(ctx context.Context, tx *gorm.DB, fields types.Fields, excludeID uuid.UUID) error {
	for _, fd := range rs.def.UniqueFields() {
		v, ok := fields[fd.Name]
		if !ok || v.IsZero() {
			continue
		}
		exists, err := rs.drafts.FieldValueExists(ctx, tx, rs.def.Name, fd.Name, v.Native(), excludeID)
		if err != nil {
			return cmserr.Storage(err)
		}
		if exists {
			return cmserr.DuplicateKey(rs.def.Name, fd.Name)
		}
	}
	return nil
}

func (rs *recordService) Update(ctx context.Context, token string, id uuid.UUID, fields types.Fields) (*types.Record, error) {
	userID, err := rs.tokens.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	return rs.update(ctx, userID, id, fields)
}

func (rs *recordService) update(ctx context.Context, userID uuid.UUID, id uuid.UUID, fields types.Fields) (*types.Record, error) {
	if len(fields) == 0 {
		return nil, cmserr.MissingItem()
	}
	return rs.mutate(ctx, userID, id, fields, mutateReplace)
}

func (rs *recordService) Patch(ctx context.Context, token string, id uuid.UUID, partial types.Fields) (*types.Record, error) {
	userID, err := rs.tokens.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	if len(partial) == 0 {
		return nil, cmserr.MissingItem()
	}
	return rs.mutate(ctx, userID, id, partial, mutatePatch)
}

func (rs *recordService) Remove(ctx context.Context, token string, id uuid.UUID) (*types.Record, error) {
	userID, err := rs.tokens.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	return rs.mutate(ctx, userID, id, nil, mutateRemove)
}

type mutateMode int

const (
	mutateReplace mutateMode = iota
	mutatePatch
	mutateRemove
)

// mutate runs the read current / validate / write next version / append
// history transaction shared by update, patch and remove. It returns the
// PRE-mutation record so callers can diff what was replaced.
func (rs *recordService) mutate(ctx context.Context, userID, id uuid.UUID, payload types.Fields, mode mutateMode) (*types.Record, error) {
	if id == uuid.Nil {
		return nil, cmserr.MissingID()
	}

	var old *types.Record
	err := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := rs.drafts.GetByID(ctx, tx, id)
		if err != nil {
			return cmserr.Storage(err)
		}
		if row == nil {
			return cmserr.NotFound(rs.def.Name, id)
		}
		old, err = row.Record()
		if err != nil {
			return cmserr.Storage(err)
		}

		var merged types.Fields
		switch mode {
		case mutateReplace:
			merged = rs.def.ApplyDefaults(payload)
		case mutatePatch:
			merged = old.Fields.Clone()
			for name, v := range payload {
				merged[name] = v
			}
		case mutateRemove:
			merged = types.Fields{}
		}

		if mode != mutateRemove {
			if err := rs.def.Validate(merged); err != nil {
				return err
			}
			if err := rs.checkUnique(ctx, tx, merged, id); err != nil {
				return err
			}
		}

		changeSet := diff.Build(old.Fields, merged)

		next := &types.Record{
			ID:     id,
			Type:   rs.def.Name,
			Fields: merged,
			Meta: types.Meta{
				Version: old.Meta.Version + 1,
				Created: old.Meta.Created,
				Updated: stamp(userID),
			},
		}
		nextRow, err := types.DraftRow(next)
		if err != nil {
			return cmserr.Storage(err)
		}
		committed, err := rs.drafts.CommitVersion(ctx, tx, nextRow, old.Meta.Version)
		if err != nil {
			return cmserr.Storage(err)
		}
		if !committed {
			return cmserr.VersionConflict(rs.def.Name, id, next.Meta.Version)
		}

		encoded, err := types.EncodeChangeSet(changeSet)
		if err != nil {
			return cmserr.Storage(err)
		}
		entry := &types.HistoryEntry{
			RecordID:   id,
			RecordType: rs.def.Name,
			Version:    old.Meta.Version,
			UpdatedBy:  old.Meta.Updated.By,
			UpdatedAt:  old.Meta.Updated.At,
			Changes:    encoded,
		}
		if err := rs.history.Append(ctx, tx, entry); err != nil {
			return cmserr.Storage(err)
		}

		if mode == mutateRemove {
			if err := rs.live.Delete(ctx, tx, id); err != nil {
				return cmserr.Storage(err)
			}
			if err := rs.drafts.Delete(ctx, tx, id); err != nil {
				return cmserr.Storage(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if mode == mutateRemove {
		rs.invalidateCache(ctx, id)
	}
	rs.log.Debug("record mutated", "id", id, "from_version", old.Meta.Version)
	return old, nil
}

// --- publication ---

func (rs *recordService) IsLive(ctx context.Context, token string, id uuid.UUID) (bool, error) {
	if _, err := rs.tokens.Validate(ctx, token); err != nil {
		return false, err
	}
	if id == uuid.Nil {
		return false, cmserr.MissingID()
	}
	exists, err := rs.live.Exists(ctx, nil, id)
	if err != nil {
		return false, cmserr.Storage(err)
	}
	return exists, nil
}

func (rs *recordService) Publish(ctx context.Context, token string, id uuid.UUID) (types.Fields, error) {
	if _, err := rs.tokens.Validate(ctx, token); err != nil {
		return nil, err
	}
	return rs.publish(ctx, id)
}

func (rs *recordService) publish(ctx context.Context, id uuid.UUID) (types.Fields, error) {
	if id == uuid.Nil {
		return nil, cmserr.MissingID()
	}
	row, err := rs.drafts.GetByID(ctx, nil, id)
	if err != nil {
		return nil, cmserr.Storage(err)
	}
	if row == nil {
		return nil, cmserr.NotFound(rs.def.Name, id)
	}

	liveRow := &types.LiveRecord{ID: row.ID, Type: row.Type, Fields: row.Fields}
	if err := rs.live.Upsert(ctx, nil, liveRow); err != nil {
		return nil, cmserr.Storage(err)
	}
	if rs.cache != nil {
		if err := rs.cache.Set(ctx, liveRow); err != nil {
			rs.log.Warn("live cache set failed", "id", id, "error", err)
		}
	}

	fields, err := liveRow.Payload()
	if err != nil {
		return nil, cmserr.Storage(err)
	}
	rs.log.Info("record published", "id", id)
	return fields, nil
}

func (rs *recordService) Unpublish(ctx context.Context, token string, id uuid.UUID) (types.Fields, error) {
	if _, err := rs.tokens.Validate(ctx, token); err != nil {
		return nil, err
	}
	return rs.unpublish(ctx, id)
}

func (rs *recordService) unpublish(ctx context.Context, id uuid.UUID) (types.Fields, error) {
	if id == uuid.Nil {
		return nil, cmserr.MissingID()
	}
	row, err := rs.live.Get(ctx, nil, id)
	if err != nil {
		return nil, cmserr.Storage(err)
	}
	if row == nil {
		// Unpublishing something that is not live is a no-op success.
		return nil, nil
	}
	if err := rs.live.Delete(ctx, nil, id); err != nil {
		return nil, cmserr.Storage(err)
	}
	rs.invalidateCache(ctx, id)

	fields, err := row.Payload()
	if err != nil {
		return nil, cmserr.Storage(err)
	}
	rs.log.Info("record unpublished", "id", id)
	return fields, nil
}

func (rs *recordService) invalidateCache(ctx context.Context, id uuid.UUID) {
	if rs.cache == nil {
		return
	}
	if err := rs.cache.Invalidate(ctx, rs.def.Name, id); err != nil {
		rs.log.Warn("live cache invalidate failed", "id", id, "error", err)
	}
}

// --- history ---

func (rs *recordService) History(ctx context.Context, token string, id uuid.UUID) ([]*types.HistoryEntry, error) {
	if _, err := rs.tokens.Validate(ctx, token); err != nil {
		return nil, err
	}
	return rs.historyFor(ctx, id)
}

func (rs *recordService) historyFor(ctx context.Context, id uuid.UUID) ([]*types.HistoryEntry, error) {
	if id == uuid.Nil {
		return nil, cmserr.MissingID()
	}
	all := 1
	entries, err := rs.history.ListFor(ctx, nil, id, &all)
	if err != nil {
		return nil, cmserr.Storage(err)
	}
	return entries, nil
}

func (rs *recordService) PreviewRollback(ctx context.Context, token string, id uuid.UUID, version *int) (*types.Record, error) {
	userID, err := rs.tokens.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	return rs.previewRollback(ctx, userID, id, version)
}

// previewRollback reconstructs what the record would look like committed
// as a new version holding the content of an older one. It never writes.
func (rs *recordService) previewRollback(ctx context.Context, userID, id uuid.UUID, version *int) (*types.Record, error) {
	if id == uuid.Nil {
		return nil, cmserr.MissingID()
	}
	if version != nil && *version < 1 {
		return nil, cmserr.NegativeVersion(*version)
	}

	entries, err := rs.history.ListFor(ctx, nil, id, version)
	if err != nil {
		return nil, cmserr.Storage(err)
	}
	row, err := rs.drafts.GetByID(ctx, nil, id)
	if err != nil {
		return nil, cmserr.Storage(err)
	}

	var base *types.Record
	if row != nil {
		base, err = row.Record()
		if err != nil {
			return nil, cmserr.Storage(err)
		}
	} else {
		if len(entries) == 0 {
			return nil, cmserr.NotFound(rs.def.Name, id)
		}
		// The record was removed: synthesize the version it would hold
		// had it not been deleted, with fresh signatures.
		signature := stamp(userID)
		base = &types.Record{
			ID:     id,
			Type:   rs.def.Name,
			Fields: types.Fields{},
			Meta: types.Meta{
				Version: entries[0].Version + 1,
				Created: signature,
				Updated: signature,
			},
		}
	}

	fields := base.Fields.Clone()
	for _, entry := range entries {
		changeSet, err := entry.ChangeSet()
		if err != nil {
			return nil, cmserr.Storage(err)
		}
		fields = diff.Apply(fields, changeSet)
	}

	return &types.Record{
		ID:     id,
		Type:   rs.def.Name,
		Fields: fields,
		Meta: types.Meta{
			Version: base.Meta.Version + 1,
			Created: base.Meta.Created,
			Updated: stamp(userID),
		},
	}, nil
}

func (rs *recordService) Rollback(ctx context.Context, token string, id uuid.UUID, version *int) (*types.Record, error) {
	userID, err := rs.tokens.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	return rs.rollback(ctx, userID, id, version)
}

func (rs *recordService) rollback(ctx context.Context, userID, id uuid.UUID, version *int) (*types.Record, error) {
	preview, err := rs.previewRollback(ctx, userID, id, version)
	if err != nil {
		return nil, err
	}

	exists, err := rs.drafts.Exists(ctx, nil, id)
	if err != nil {
		return nil, cmserr.Storage(err)
	}
	if exists {
		// Committing through update appends the history entry that
		// documents the rollback itself.
		return rs.update(ctx, userID, id, preview.Fields)
	}

	// The draft was removed: resurrect it under its original id with the
	// preview's version envelope, so numbering continues past the removal.
	err = rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return rs.insert(ctx, tx, preview)
	})
	if err != nil {
		return nil, err
	}
	rs.log.Info("record resurrected by rollback", "id", id, "version", preview.Meta.Version)
	return preview, nil
}

// --- schema ---

func (rs *recordService) Describe(ctx context.Context, token string) (schema.Info, error) {
	if _, err := rs.tokens.Validate(ctx, token); err != nil {
		return schema.Info{}, err
	}
	return rs.def.Describe(), nil
}

func (rs *recordService) Live() LiveService {
	return rs.lives
}
