package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// assignID gives rows a client-side UUID so inserts do not depend on
// gen_random_uuid() (SQLite-backed tests have no such function).
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (m *Member) BeforeCreate(*gorm.DB) error           { assignID(&m.ID); return nil }
func (p *Pet) BeforeCreate(*gorm.DB) error              { assignID(&p.ID); return nil }
func (l *PetAppealLog) BeforeCreate(*gorm.DB) error     { assignID(&l.ID); return nil }
func (a *Ambassador) BeforeCreate(*gorm.DB) error       { assignID(&a.ID); return nil }
func (r *Referral) BeforeCreate(*gorm.DB) error         { assignID(&r.ID); return nil }
func (p *AmbassadorPayout) BeforeCreate(*gorm.DB) error { assignID(&p.ID); return nil }
func (c *CommTemplate) BeforeCreate(*gorm.DB) error     { assignID(&c.ID); return nil }
func (c *CommLog) BeforeCreate(*gorm.DB) error          { assignID(&c.ID); return nil }
func (d *LegalDocument) BeforeCreate(*gorm.DB) error    { assignID(&d.ID); return nil }
func (n *Notification) BeforeCreate(*gorm.DB) error     { assignID(&n.ID); return nil }
func (a *AdminUser) BeforeCreate(*gorm.DB) error        { assignID(&a.ID); return nil }
func (e *OutboxEvent) BeforeCreate(*gorm.DB) error      { assignID(&e.ID); return nil }
func (d *OutboxDLQ) BeforeCreate(*gorm.DB) error        { assignID(&d.ID); return nil }
