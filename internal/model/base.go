package model

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel carries the audit columns shared by every table.
type BaseModel struct {
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	CreatedBy *string   `gorm:"type:text" json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:text" json:"updated_by,omitempty"`
}

// SoftDeleteModel adds gorm soft delete plus the deleting user.
type SoftDeleteModel struct {
	BaseModel
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	DeletedBy *string        `gorm:"type:text" json:"-"`
}
