package db_models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel carries the identity and audit columns shared by partner tables.
// Timestamps are unix seconds. Rows are hard-deleted, so there is no
// deleted_at column: a removed place must also vanish from the vector index
// and reconciliation compares live ids only.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt int64     `gorm:"autoCreateTime;not null" json:"created_at"`
	UpdatedAt int64     `gorm:"autoUpdateTime;not null;index" json:"updated_at"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.touch(time.Now())
	if b.CreatedAt == 0 {
		b.CreatedAt = b.UpdatedAt
	}
	return nil
}

func (b *BaseModel) BeforeUpdate(tx *gorm.DB) error {
	b.touch(time.Now())
	return nil
}

func (b *BaseModel) touch(at time.Time) {
	b.UpdatedAt = at.Unix()
}
