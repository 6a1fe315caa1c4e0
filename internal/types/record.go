package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Signature records who touched a record and when. Immutable once written.
type Signature struct {
	By uuid.UUID `json:"by"`
	At time.Time `json:"at"`
}

// Meta is the version envelope carried by every draft record. Created never
// changes after creation; Updated is overwritten on every mutation.
type Meta struct {
	Version int       `json:"version"`
	Created Signature `json:"created"`
	Updated Signature `json:"updated"`
}

// Record is the decoded form of a draft row: the user-defined payload plus
// the version envelope. Expanded holds populated reference targets and is
// never persisted.
type Record struct {
	ID       uuid.UUID          `json:"id"`
	Type     string             `json:"type"`
	Fields   Fields             `json:"fields"`
	Meta     Meta               `json:"meta"`
	Expanded map[string]*Record `json:"expanded,omitempty"`
}

// DraftRecord is the authoritative stored row. The signature columns are
// owned by the versioning engine, not by gorm's auto timestamps.
type DraftRecord struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Type      string         `gorm:"column:type;not null;index" json:"type"`
	Fields    datatypes.JSON `gorm:"column:fields;type:jsonb" json:"fields"`
	Version   int            `gorm:"column:version;not null" json:"version"`
	CreatedBy uuid.UUID      `gorm:"type:uuid;column:created_by;not null" json:"created_by"`
	CreatedAt time.Time      `gorm:"column:created_at;not null;autoCreateTime:false" json:"created_at"`
	UpdatedBy uuid.UUID      `gorm:"type:uuid;column:updated_by;not null" json:"updated_by"`
	UpdatedAt time.Time      `gorm:"column:updated_at;not null;autoUpdateTime:false" json:"updated_at"`
}

func (DraftRecord) TableName() string { return "draft_record" }

// Record decodes the stored payload into the service-facing envelope.
func (d *DraftRecord) Record() (*Record, error) {
	fields := Fields{}
	if len(d.Fields) > 0 {
		if err := json.Unmarshal(d.Fields, &fields); err != nil {
			return nil, err
		}
	}
	return &Record{
		ID:     d.ID,
		Type:   d.Type,
		Fields: fields,
		Meta: Meta{
			Version: d.Version,
			Created: Signature{By: d.CreatedBy, At: d.CreatedAt},
			Updated: Signature{By: d.UpdatedBy, At: d.UpdatedAt},
		},
	}, nil
}

// DraftRow encodes a record envelope back into its stored form.
func DraftRow(r *Record) (*DraftRecord, error) {
	payload, err := json.Marshal(r.Fields)
	if err != nil {
		return nil, err
	}
	return &DraftRecord{
		ID:        r.ID,
		Type:      r.Type,
		Fields:    datatypes.JSON(payload),
		Version:   r.Meta.Version,
		CreatedBy: r.Meta.Created.By,
		CreatedAt: r.Meta.Created.At,
		UpdatedBy: r.Meta.Updated.By,
		UpdatedAt: r.Meta.Updated.At,
	}, nil
}
