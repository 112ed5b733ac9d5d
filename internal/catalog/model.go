package catalog

import "time"

type Course struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"              json:"id"`
	Name      string    `gorm:"column:name;type:varchar(255);not null;index"    json:"name"`
	IsActive  bool      `gorm:"column:is_active;not null"                       json:"is_active"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"                json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"                json:"updated_at"`
}

func (Course) TableName() string {
	return "courses"
}

type Service struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"              json:"id"`
	Name      string    `gorm:"column:name;type:varchar(255);not null;index"    json:"name"`
	IsActive  bool      `gorm:"column:is_active;not null"                       json:"is_active"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"                json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"                json:"updated_at"`
}

func (Service) TableName() string {
	return "services"
}

// Mettad is the marketing channel a lead came through.
type Mettad struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"              json:"id"`
	Name      string    `gorm:"column:name;type:varchar(255);not null"          json:"name"`
	IsActive  bool      `gorm:"column:is_active;not null"                       json:"is_active"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"                json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"                json:"updated_at"`
}

func (Mettad) TableName() string {
	return "mettads"
}

type Checklist struct {
	ID          uint      `gorm:"column:id;primaryKey;autoIncrement"           json:"id"`
	Title       string    `gorm:"column:title;type:varchar(255);not null"      json:"title"`
	Description string    `gorm:"column:description;type:text"                json:"description"`
	IsActive    bool      `gorm:"column:is_active;not null"                    json:"is_active"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"             json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"             json:"updated_at"`
}

func (Checklist) TableName() string {
	return "checklists"
}
