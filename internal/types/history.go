package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// FieldChange captures one field's value before a mutation replaced it.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue Value  `json:"oldValue"`
}

// ChangeSet is the ordered list of old values describing the transition
// away from one version. Order is by field name.
type ChangeSet []FieldChange

// HistoryEntry is one append-only ledger row: the transition away from
// Version of record RecordID. Rows are written exactly once per mutation
// and never updated or deleted.
type HistoryEntry struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RecordID   uuid.UUID      `gorm:"type:uuid;column:record_id;not null;index" json:"record_id"`
	RecordType string         `gorm:"column:record_type;not null;index" json:"record_type"`
	Version    int            `gorm:"column:version;not null" json:"version"`
	UpdatedBy  uuid.UUID      `gorm:"type:uuid;column:updated_by;not null" json:"updated_by"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;not null;autoUpdateTime:false" json:"updated_at"`
	Changes    datatypes.JSON `gorm:"column:changes;type:jsonb" json:"changes"`
	CreatedAt  time.Time      `gorm:"column:created_at;not null" json:"created_at"`
}

func (HistoryEntry) TableName() string { return "history_entry" }

// Updated is the signature the record carried at the version being left.
func (h *HistoryEntry) Updated() Signature {
	return Signature{By: h.UpdatedBy, At: h.UpdatedAt}
}

// ChangeSet decodes the stored change payload.
func (h *HistoryEntry) ChangeSet() (ChangeSet, error) {
	var cs ChangeSet
	if len(h.Changes) == 0 {
		return cs, nil
	}
	if err := json.Unmarshal(h.Changes, &cs); err != nil {
		return nil, err
	}
	return cs, nil
}

// EncodeChangeSet serializes a change-set for storage.
func EncodeChangeSet(cs ChangeSet) (datatypes.JSON, error) {
	if cs == nil {
		cs = ChangeSet{}
	}
	payload, err := json.Marshal(cs)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(payload), nil
}
