package models

import (
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// IDs are generated in Go so sqlite and postgres behave the same.
func newID(id *uuid.UUID) error {
	if id.IsNil() {
		v, err := uuid.NewV4()
		if err != nil {
			return err
		}
		*id = v
	}
	return nil
}

func (u *User) BeforeCreate(*gorm.DB) error         { return newID(&u.ID) }
func (t *Token) BeforeCreate(*gorm.DB) error        { return newID(&t.ID) }
func (t *Task) BeforeCreate(*gorm.DB) error         { return newID(&t.ID) }
func (c *Comment) BeforeCreate(*gorm.DB) error      { return newID(&c.ID) }
func (n *Notification) BeforeCreate(*gorm.DB) error { return newID(&n.ID) }
