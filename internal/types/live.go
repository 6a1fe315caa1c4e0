package types

import (
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// LiveRecord is the published snapshot of a draft record: the field payload
// as it stood at the last publish, with the version envelope stripped.
// Existence of a row is the only signal for "is live". Rows are disposable
// and never drive version numbering.
type LiveRecord struct {
	ID     uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Type   string         `gorm:"column:type;not null;index" json:"type"`
	Fields datatypes.JSON `gorm:"column:fields;type:jsonb" json:"fields"`
}

func (LiveRecord) TableName() string { return "live_record" }

// Payload decodes the published fields.
func (l *LiveRecord) Payload() (Fields, error) {
	fields := Fields{}
	if len(l.Fields) > 0 {
		if err := json.Unmarshal(l.Fields, &fields); err != nil {
			return nil, err
		}
	}
	return fields, nil
}
