// Package leadcapture turns leads captured by external forms into assigned
// enquiries.
package leadcapture

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/catalog"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/enquiry"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/events"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/logging"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	CreatedByRole = "System"
	CreatedByName = "Lead Capture"
)

var ErrInvalidLead = errors.New("invalid lead message")

// Lead is the JSON message on the lead topic.
type Lead struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Source     string `json:"source"`
	Course     string `json:"course"`
	Service    string `json:"service"`
	Feedback   string `json:"feedback"`
	BranchID   *uint  `json:"branch_id"`
	CapturedAt string `json:"captured_at"`
}

// CapturedTime parses CapturedAt as RFC3339 or "2006-01-02 15:04:05".
func (l *Lead) CapturedTime() (time.Time, bool) {
	if l.CapturedAt == "" {
		return time.Time{}, false
	}

	parsed, err := time.Parse(time.RFC3339, l.CapturedAt)
	if err != nil {
		parsed, err = time.Parse(time.DateTime, l.CapturedAt)
	}

	return parsed, err == nil
}

type LeadCapturedPayload struct {
	EnquiryID    uint   `json:"enquiry_id"`
	TelecallerID *uint  `json:"telecaller_id"`
	Source       string `json:"source"`
}

type LeadCaptureService struct {
	CatalogService *catalog.CatalogService
	EnquiryService *enquiry.EnquiryService
	Publisher      events.Publisher
}

func NewService(dbConn *gorm.DB, publisher events.Publisher) *LeadCaptureService {
	return &LeadCaptureService{
		CatalogService: catalog.NewService(dbConn),
		EnquiryService: enquiry.NewService(dbConn),
		Publisher:      publisher,
	}
}

// Decode parses and checks a raw lead message.
func Decode(msg []byte) (*Lead, error) {
	var lead Lead

	err := json.Unmarshal(msg, &lead)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLead, err)
	}

	lead.Name = strings.TrimSpace(lead.Name)
	lead.Phone = strings.TrimSpace(lead.Phone)

	if lead.Name == "" || lead.Phone == "" {
		return nil, fmt.Errorf("%w: name and phone are required", ErrInvalidLead)
	}

	return &lead, nil
}

// Source maps a free-text source onto a declared enquiry source, falling back
// to Other.
func Source(raw string) string {
	raw = strings.TrimSpace(raw)

	for _, source := range enquiry.Sources {
		if strings.EqualFold(source, raw) {
			return source
		}
	}

	return enquiry.SourceOther
}

// ProcessLead creates an enquiry for msg and assigns it to the active
// telecaller with the fewest open enquiries.
func (leadCaptureService *LeadCaptureService) ProcessLead(ctx context.Context, msg []byte) error {
	lead, err := Decode(msg)
	if err != nil {
		return err
	}

	lookup, err := leadCaptureService.CatalogService.Resolve(ctx, lead.Course, lead.Service)
	if err != nil {
		return err
	}

	for _, warning := range lookup.Warnings {
		logging.Logger.Warn("[ProcessLead] Unresolved lookup", zap.String("warning", warning))
	}

	telecallerID, err := leadCaptureService.EnquiryService.LeastLoadedTelecaller(ctx)
	if err != nil {
		return err
	}

	captured := &enquiry.Enquiry{
		CandidateName: lead.Name,
		Phone:         lead.Phone,
		Email:         lead.Email,
		Feedback:      lead.Feedback,
		CourseID:      lookup.CourseID,
		ServiceID:     lookup.ServiceID,
		BranchID:      lead.BranchID,
		EnquirySource: Source(lead.Source),
		EnquiryStatus: enquiry.StatusActive,
		TelecallerID:  telecallerID,
		CreatedByRole: CreatedByRole,
		CreatedByName: CreatedByName,
	}

	err = leadCaptureService.EnquiryService.Insert(ctx, captured)
	if err != nil {
		return err
	}

	logging.Logger.Info("Lead captured",
		zap.Uint("enquiry_id", captured.ID),
		zap.Any("telecaller_id", telecallerID),
		zap.String("source", captured.EnquirySource),
	)

	leadCaptureService.Publisher.Publish(ctx, events.New(
		events.TypeLeadCaptured,
		strconv.FormatUint(uint64(captured.ID), 10),
		LeadCapturedPayload{EnquiryID: captured.ID, TelecallerID: telecallerID, Source: captured.EnquirySource},
	))

	return nil
}
