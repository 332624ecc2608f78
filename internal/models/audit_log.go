package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuditAction string

const (
	AuditCreate AuditAction = "CREATE"
	AuditUpdate AuditAction = "UPDATE"
)

type AuditLog struct {
	ID         string         `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	ActorID    string         `gorm:"column:actor_id;type:varchar(36)" json:"actor_id"`
	ActorRole  string         `gorm:"column:actor_role;size:20" json:"actor_role"`
	EntityType string         `gorm:"column:entity_type;size:50;not null;index:idx_audit_entity" json:"entity_type"`
	EntityID   string         `gorm:"column:entity_id;type:varchar(36);not null;index:idx_audit_entity" json:"entity_id"`
	Action     AuditAction    `gorm:"column:action;size:20;not null" json:"action"`
	Before     datatypes.JSON `gorm:"column:before_data" json:"before"`
	After      datatypes.JSON `gorm:"column:after_data" json:"after"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
