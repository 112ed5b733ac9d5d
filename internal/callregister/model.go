package callregister

import (
	"fmt"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/enquiry"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/telecaller"
	"gorm.io/datatypes"
)

const (
	TypeIncoming = "Incoming"
	TypeOutgoing = "Outgoing"
)

var Types = []string{TypeIncoming, TypeOutgoing}

const (
	StatusContacted     = "contacted"
	StatusNotAnswered   = "Not Answered"
	StatusBusy          = "Busy"
	StatusSwitchedOff   = "Switched Off"
	StatusAnswered      = "answered"
	StatusNoResponse    = "No Response"
	StatusInvalidNumber = "Invalid Number"
	StatusNotContacted  = "not_contacted"
)

var Statuses = []string{
	StatusContacted,
	StatusNotAnswered,
	StatusBusy,
	StatusSwitchedOff,
	StatusAnswered,
	StatusNoResponse,
	StatusInvalidNumber,
	StatusNotContacted,
}

type CallRegister struct {
	ID            uint                   `gorm:"column:id;primaryKey;autoIncrement"`
	EnquiryID     uint                   `gorm:"column:enquiry_id;not null;index"`
	Enquiry       *enquiry.Enquiry       `gorm:"foreignKey:EnquiryID;constraint:OnDelete:CASCADE"`
	TelecallerID  uint                   `gorm:"column:telecaller_id;not null;index"`
	Telecaller    *telecaller.Telecaller `gorm:"foreignKey:TelecallerID;constraint:OnDelete:CASCADE"`
	CallType      string                 `gorm:"column:call_type;type:varchar(20);not null;default:Outgoing"`
	CallStatus    string                 `gorm:"column:call_status;type:varchar(20);not null;index"`
	CallOutcome   *string                `gorm:"column:call_outcome;type:varchar(30);index"`
	CallDuration  *int                   `gorm:"column:call_duration"`
	CallStartTime *time.Time             `gorm:"column:call_start_time"`
	CallEndTime   *time.Time             `gorm:"column:call_end_time"`
	Notes         string                 `gorm:"column:notes;type:text"`
	FollowUpDate  *datatypes.Date        `gorm:"column:follow_up_date;index"`
	NextAction    string                 `gorm:"column:next_action;type:varchar(255)"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt     time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (CallRegister) TableName() string {
	return "call_registers"
}

// Outcome returns the recorded outcome or "".
func (c *CallRegister) Outcome() string {
	if c.CallOutcome == nil {
		return ""
	}

	return *c.CallOutcome
}

// Duration returns end minus start in whole seconds when both are known.
func Duration(start, end *time.Time) *int {
	if start == nil || end == nil {
		return nil
	}

	seconds := int(end.Sub(*start).Seconds())

	return &seconds
}

// FormatDuration renders a call duration as "Xm Ys".
func FormatDuration(seconds *int) *string {
	if seconds == nil || *seconds == 0 {
		return nil
	}

	formatted := fmt.Sprintf("%dm %ds", *seconds/60, *seconds%60)

	return &formatted
}

// FormatTalkTime renders accumulated talk time as "Xh Ym".
func FormatTalkTime(seconds int64) string {
	return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
}

type EnquiryDetails struct {
	ID            uint   `json:"id"`
	CandidateName string `json:"candidate_name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	EnquiryStatus string `json:"enquiry_status"`
}

// View is the JSON shape of a call log.
type View struct {
	ID                    uint            `json:"id"`
	EnquiryID             uint            `json:"enquiry_id"`
	EnquiryDetails        *EnquiryDetails `json:"enquiry_details"`
	TelecallerID          uint            `json:"telecaller_id"`
	TelecallerName        string          `json:"telecaller_name"`
	BranchName            *string         `json:"branch_name"`
	CallType              string          `json:"call_type"`
	CallStatus            string          `json:"call_status"`
	CallOutcome           *string         `json:"call_outcome"`
	CallDuration          *int            `json:"call_duration"`
	CallDurationFormatted *string         `json:"call_duration_formatted"`
	CallStartTime         *time.Time      `json:"call_start_time"`
	CallEndTime           *time.Time      `json:"call_end_time"`
	Notes                 string          `json:"notes"`
	FollowUpDate          *string         `json:"follow_up_date"`
	NextAction            string          `json:"next_action"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

func (c *CallRegister) View() View {
	view := View{
		ID:                    c.ID,
		EnquiryID:             c.EnquiryID,
		TelecallerID:          c.TelecallerID,
		CallType:              c.CallType,
		CallStatus:            c.CallStatus,
		CallOutcome:           c.CallOutcome,
		CallDuration:          c.CallDuration,
		CallDurationFormatted: FormatDuration(c.CallDuration),
		CallStartTime:         c.CallStartTime,
		CallEndTime:           c.CallEndTime,
		Notes:                 c.Notes,
		FollowUpDate:          enquiry.FormatDate(c.FollowUpDate),
		NextAction:            c.NextAction,
		CreatedAt:             c.CreatedAt,
		UpdatedAt:             c.UpdatedAt,
	}

	if c.Enquiry != nil {
		view.EnquiryDetails = &EnquiryDetails{
			ID:            c.Enquiry.ID,
			CandidateName: c.Enquiry.CandidateName,
			Phone:         c.Enquiry.Phone,
			Email:         c.Enquiry.Email,
			EnquiryStatus: c.Enquiry.EnquiryStatus,
		}
	}

	if c.Telecaller != nil {
		view.TelecallerName = c.Telecaller.Name

		if name := c.Telecaller.BranchName(); name != "" {
			view.BranchName = &name
		}
	}

	return view
}
