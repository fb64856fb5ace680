package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a merchant account. Name must match the bank account holder name
// because the verification service checks it against the receiver.
type User struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	Password     string    `gorm:"not null" json:"-"`
	Name         string    `gorm:"not null" json:"name"`
	BankName     string    `gorm:"column:bank_name" json:"bankName,omitempty"`
	BankAccount  string    `gorm:"column:bank_account" json:"bankAccount,omitempty"`
	IsAdmin      bool      `gorm:"default:false" json:"isAdmin"`
	TokenVersion int       `gorm:"default:1" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Bank returns the merchant's validated bank settings.
func (u *User) Bank() (BankSettings, error) {
	return ParseBankSettings(u.BankName, u.BankAccount)
}
