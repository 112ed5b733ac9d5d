package enquiry

import (
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/branch"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/catalog"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/telecaller"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Enquiry struct {
	ID            uint                   `gorm:"column:id;primaryKey;autoIncrement"`
	CandidateName string                 `gorm:"column:candidate_name;type:varchar(255);not null;index"`
	Phone         string                 `gorm:"column:phone;type:varchar(20);not null;index"`
	Phone2        string                 `gorm:"column:phone2;type:varchar(20)"`
	Email         string                 `gorm:"column:email;type:varchar(254)"`
	CourseID      *uint                  `gorm:"column:course_id;index"`
	Course        *catalog.Course        `gorm:"foreignKey:CourseID;constraint:OnDelete:SET NULL"`
	ServiceID     *uint                  `gorm:"column:service_id;index"`
	Service       *catalog.Service       `gorm:"foreignKey:ServiceID;constraint:OnDelete:SET NULL"`
	MettadID      *uint                  `gorm:"column:mettad_id;index"`
	Mettad        *catalog.Mettad        `gorm:"foreignKey:MettadID;constraint:OnDelete:SET NULL"`
	EnquirySource string                 `gorm:"column:enquiry_source;type:varchar(50);not null;default:Other"`
	EnquiryStatus string                 `gorm:"column:enquiry_status;type:varchar(20);not null;default:Active;index"`
	Feedback      string                 `gorm:"column:feedback;type:text"`
	FollowUpOn    *datatypes.Date        `gorm:"column:follow_up_on"`
	CreatedByID   *uuid.UUID             `gorm:"column:created_by_id;type:uuid"`
	CreatedByRole string                 `gorm:"column:created_by_role;type:varchar(20)"`
	CreatedByName string                 `gorm:"column:created_by_name;type:varchar(255)"`
	TelecallerID  *uint                  `gorm:"column:telecaller_id;index"`
	Telecaller    *telecaller.Telecaller `gorm:"foreignKey:TelecallerID;constraint:OnDelete:SET NULL"`
	BranchID      *uint                  `gorm:"column:branch_id;index"`
	Branch        *branch.Branch         `gorm:"foreignKey:BranchID;constraint:OnDelete:SET NULL"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt     time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (Enquiry) TableName() string {
	return "enquiries"
}

// View is the JSON shape of an enquiry.
type View struct {
	ID                  uint      `json:"id"`
	CandidateName       string    `json:"candidate_name"`
	Phone               string    `json:"phone"`
	Phone2              string    `json:"phone2"`
	Email               string    `json:"email"`
	Feedback            string    `json:"feedback"`
	FollowUpOn          *string   `json:"follow_up_on"`
	EnquiryStatus       string    `json:"enquiry_status"`
	EnquirySource       string    `json:"enquiry_source"`
	CreatedAt           time.Time `json:"created_at"`
	CreatedByRole       *string   `json:"created_by_role"`
	CreatedByName       *string   `json:"created_by_name"`
	AssignedByID        *uint     `json:"assigned_by_id"`
	AssignedByName      *string   `json:"assigned_by_name"`
	BranchName          *string   `json:"branch_name"`
	MettadID            *uint     `json:"mettad_id"`
	MettadName          *string   `json:"mettad_name"`
	PreferredCourseID   *uint     `json:"preferred_course_id"`
	PreferredCourseName *string   `json:"preferred_course_name"`
	RequiredServiceID   *uint     `json:"required_service_id"`
	RequiredServiceName *string   `json:"required_service_name"`
}

func optional(value string) *string {
	if value == "" {
		return nil
	}

	return &value
}

// FormatDate renders a date-only column as YYYY-MM-DD.
func FormatDate(date *datatypes.Date) *string {
	if date == nil {
		return nil
	}

	formatted := time.Time(*date).UTC().Format("2006-01-02")

	return &formatted
}

func (e *Enquiry) View() View {
	view := View{
		ID:                e.ID,
		CandidateName:     e.CandidateName,
		Phone:             e.Phone,
		Phone2:            e.Phone2,
		Email:             e.Email,
		Feedback:          e.Feedback,
		FollowUpOn:        FormatDate(e.FollowUpOn),
		EnquiryStatus:     e.EnquiryStatus,
		EnquirySource:     e.EnquirySource,
		CreatedAt:         e.CreatedAt,
		CreatedByRole:     optional(e.CreatedByRole),
		CreatedByName:     optional(e.CreatedByName),
		AssignedByID:      e.TelecallerID,
		MettadID:          e.MettadID,
		PreferredCourseID: e.CourseID,
		RequiredServiceID: e.ServiceID,
	}

	if e.Telecaller != nil {
		view.AssignedByName = optional(e.Telecaller.Name)
		view.BranchName = optional(e.Telecaller.BranchName())
	}

	if view.BranchName == nil && e.Branch != nil {
		view.BranchName = optional(e.Branch.Name)
	}

	if e.Mettad != nil {
		view.MettadName = optional(e.Mettad.Name)
	}

	if e.Course != nil {
		view.PreferredCourseName = optional(e.Course.Name)
	}

	if e.Service != nil {
		view.RequiredServiceName = optional(e.Service.Name)
	}

	return view
}

// AssignedTo reports whether the enquiry belongs to the telecaller.
func (e *Enquiry) AssignedTo(telecallerID uint) bool {
	return e.TelecallerID != nil && *e.TelecallerID == telecallerID
}
