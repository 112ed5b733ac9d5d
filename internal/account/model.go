package account

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin      = "Admin"
	RoleTelecaller = "Telecaller"
)

type Role struct {
	ID   uint   `gorm:"column:id;primaryKey;autoIncrement"           json:"id"`
	Name string `gorm:"column:name;type:varchar(50);uniqueIndex;not null" json:"name"`
}

func (Role) TableName() string {
	return "roles"
}

type Account struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"                     json:"id"`
	Email        string    `gorm:"column:email;type:varchar(254);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;type:varchar(255);not null"     json:"-"`
	RoleID       uint      `gorm:"column:role_id;not null;index"                       json:"role_id"`
	Role         Role      `gorm:"foreignKey:RoleID"                                   json:"role"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true"              json:"is_active"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"                    json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"                    json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}

func (a *Account) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	return nil
}

func (a *Account) IsAdmin() bool {
	return a.Role.Name == RoleAdmin
}
