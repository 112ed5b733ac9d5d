package branch

import "time"

type Branch struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"                  json:"id"`
	Name      string    `gorm:"column:branch_name;type:varchar(255);not null"       json:"branch_name"`
	Address   string    `gorm:"column:address;type:text"                            json:"address"`
	City      string    `gorm:"column:city;type:varchar(100)"                       json:"city"`
	State     string    `gorm:"column:state;type:varchar(100)"                      json:"state"`
	Country   string    `gorm:"column:country;type:varchar(100)"                    json:"country"`
	Email     string    `gorm:"column:email;type:varchar(254);uniqueIndex;not null" json:"email"`
	Contact   string    `gorm:"column:contact;type:varchar(20)"                     json:"contact"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"                    json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"                    json:"updated_at"`
}

func (Branch) TableName() string {
	return "branches"
}
