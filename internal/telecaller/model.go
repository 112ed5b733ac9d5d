package telecaller

import (
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/branch"
	"github.com/google/uuid"
)

const (
	StatusActive      = "active"
	StatusDeactivated = "deactivated"

	JobTypeFullTime = "fulltime"
	JobTypePartTime = "parttime"
)

type Telecaller struct {
	ID        uint           `gorm:"column:id;primaryKey;autoIncrement"                        json:"id"`
	AccountID uuid.UUID      `gorm:"column:account_id;type:uuid;uniqueIndex;not null"          json:"account_id"`
	Name      string         `gorm:"column:name;type:varchar(255);not null;index"              json:"name"`
	Email     string         `gorm:"column:email;type:varchar(254);uniqueIndex;not null"       json:"email"`
	Contact   string         `gorm:"column:contact;type:varchar(20)"                           json:"contact"`
	Address   string         `gorm:"column:address;type:text"                                  json:"address"`
	BranchID  *uint          `gorm:"column:branch_id;index"                                    json:"branch_id"`
	Branch    *branch.Branch `gorm:"foreignKey:BranchID;constraint:OnDelete:SET NULL"          json:"-"`
	JobType   string         `gorm:"column:job_type;type:varchar(20);not null;default:fulltime" json:"job_type"`
	Status    string         `gorm:"column:status;type:varchar(20);not null;default:active"     json:"status"`
	Target    int            `gorm:"column:target;not null;default:0"                          json:"target"`
	CreatedBy string         `gorm:"column:created_by;type:varchar(254)"                       json:"created_by"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"                          json:"created_date"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"                          json:"updated_at"`
}

func (Telecaller) TableName() string {
	return "telecallers"
}

func (t *Telecaller) BranchName() string {
	if t.Branch == nil {
		return ""
	}

	return t.Branch.Name
}

func (t *Telecaller) IsActive() bool {
	return t.Status == StatusActive
}

type View struct {
	Telecaller
	BranchName *string `json:"branch_name"`
}

func (t *Telecaller) View() View {
	view := View{Telecaller: *t}

	if name := t.BranchName(); name != "" {
		view.BranchName = &name
	}

	return view
}
