package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// newID fills an empty string primary key with a random UUID.
func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error { newID(&c.ID); return nil }
func (m *Merchant) BeforeCreate(tx *gorm.DB) error { newID(&m.ID); return nil }
func (p *InstalmentPlan) BeforeCreate(tx *gorm.DB) error { newID(&p.ID); return nil }
func (t *Transaction) BeforeCreate(tx *gorm.DB) error { newID(&t.ID); return nil }
func (p *InstalmentPayment) BeforeCreate(tx *gorm.DB) error { newID(&p.ID); return nil }
func (p *MerchantPayment) BeforeCreate(tx *gorm.DB) error { newID(&p.ID); return nil }
func (s *MerchantSize) BeforeCreate(tx *gorm.DB) error { newID(&s.ID); return nil }
func (r *WithdrawalFeeRate) BeforeCreate(tx *gorm.DB) error { newID(&r.ID); return nil }
func (w *CashbackWallet) BeforeCreate(tx *gorm.DB) error { newID(&w.ID); return nil }
func (v *Voucher) BeforeCreate(tx *gorm.DB) error { newID(&v.ID); return nil }
func (v *VoucherAssigned) BeforeCreate(tx *gorm.DB) error { newID(&v.ID); return nil }
func (h *PaymentHistory) BeforeCreate(tx *gorm.DB) error { newID(&h.ID); return nil }
func (i *Issue) BeforeCreate(tx *gorm.DB) error { newID(&i.ID); return nil }
func (e *WebhookEvent) BeforeCreate(tx *gorm.DB) error { newID(&e.ID); return nil }
func (n *Notification) BeforeCreate(tx *gorm.DB) error { newID(&n.ID); return nil }
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error { newID(&a.ID); return nil }

// All lists every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&Customer{},
		&Merchant{},
		&InstalmentPlan{},
		&MerchantSize{},
		&WithdrawalFeeRate{},
		&MerchantPayment{},
		&Transaction{},
		&Voucher{},
		&VoucherAssigned{},
		&CashbackWallet{},
		&InstalmentPayment{},
		&PaymentHistory{},
		&Issue{},
		&WebhookEvent{},
		&Notification{},
		&AuditLog{},
	}
}
