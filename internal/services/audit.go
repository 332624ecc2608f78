package services

import (
	"encoding/json"
	"fmt"

	"bnpl-service/internal/models"
	"bnpl-service/pkg/common"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type auditOptions struct {
	Actor      common.Actor
	EntityType string
	EntityID   string
	Action     models.AuditAction
	Before     interface{}
	After      interface{}
}

// writeAudit stores a before/after snapshot using tx so it commits or rolls
// back with the change it describes.
func writeAudit(tx *gorm.DB, opts auditOptions) error {
	before, err := snapshot(opts.Before)
	if err != nil {
		return err
	}
	after, err := snapshot(opts.After)
	if err != nil {
		return err
	}

	entry := models.AuditLog{
		ActorID:    opts.Actor.ID,
		ActorRole:  string(opts.Actor.Role),
		EntityType: opts.EntityType,
		EntityID:   opts.EntityID,
		Action:     opts.Action,
		Before:     before,
		After:      after,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("writing audit log for %s %s: %w", opts.EntityType, opts.EntityID, err)
	}
	return nil
}

func snapshot(v interface{}) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshalling audit snapshot: %w", err)
	}
	return datatypes.JSON(b), nil
}
