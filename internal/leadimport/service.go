// Package leadimport turns uploaded spreadsheets into enquiries distributed
// round-robin over the active telecallers.
package leadimport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/access"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/account"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/apperr"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/catalog"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/enquiry"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/events"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/logging"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/prometheus"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/telecaller"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	resultCreated = "created"
	resultSkipped = "skipped"

	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeCSV  = "text/csv"
)

const noTelecallersWarning = "No active telecallers found; imported leads are unassigned."

// Archiver stores the raw upload.
type Archiver interface {
	Upload(ctx context.Context, data []byte, objectKey, contentType string) (string, error)
}

// Resolver maps course and service names onto lookup ids.
type Resolver interface {
	Resolve(ctx context.Context, courseName, serviceName string) (catalog.Lookup, error)
}

type ImportService struct {
	CatalogService       Resolver
	EnquiryService       *enquiry.EnquiryService
	TelecallerRepository *telecaller.TelecallerRepository
	// Archiver is nil when object storage is disabled.
	Archiver  Archiver
	Publisher events.Publisher
	Now       func() time.Time
}

func NewService(dbConn *gorm.DB, archiver Archiver, publisher events.Publisher) *ImportService {
	return &ImportService{
		CatalogService:       catalog.NewService(dbConn),
		EnquiryService:       enquiry.NewService(dbConn),
		TelecallerRepository: telecaller.NewTelecallerRepository(dbConn),
		Archiver:             archiver,
		Publisher:            publisher,
		Now:                  time.Now,
	}
}

type Result struct {
	SuccessfullyImported int      `json:"successfully_imported"`
	Warnings             []string `json:"warnings"`
	ArchiveURL           string   `json:"-"`
}

// StatusCode is 201 when at least one row was created, else 207.
func (r *Result) StatusCode() int {
	if r.SuccessfullyImported > 0 {
		return http.StatusCreated
	}

	return http.StatusMultiStatus
}

type LeadsImportedPayload struct {
	Filename   string `json:"filename"`
	Imported   int    `json:"imported"`
	Warnings   int    `json:"warnings"`
	ArchiveURL string `json:"archive_url,omitempty"`
}

// Assign returns the index of the telecaller that receives the n-th created
// row (0-based) when m telecallers rotate.
func Assign(n, m int) int {
	return n % m
}

// Import parses the upload and creates one enquiry per valid row. Row level
// problems become warnings; only an unreadable file fails the whole call.
func (importService *ImportService) Import(
	ctx context.Context,
	principal access.Principal,
	filename string,
	data []byte,
) (*Result, error) {
	if !principal.Policy.IsAdmin() {
		return nil, apperr.Forbidden("Only admin can import leads.")
	}

	rows, err := Parse(filename, bytes.NewReader(data))
	if err != nil {
		return nil, apperr.NewValidation("file", err.Error())
	}

	telecallers, err := importService.TelecallerRepository.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{Warnings: []string{}}

	if len(telecallers) == 0 {
		result.Warnings = append(result.Warnings, noTelecallersWarning)
	}

	for _, row := range rows {
		lead, warnings, err := importService.build(ctx, principal, row)
		if err != nil {
			if isContextError(err) {
				return nil, err
			}

			logging.Logger.Error("[Import] Failed to resolve row lookups",
				zap.Int("row", row.Number),
				zap.String("error", err.Error()),
			)

			result.Warnings = append(result.Warnings, fmt.Sprintf("Row %d: %s", row.Number, apperr.Message(err)))
			prometheus.LeadsImported.WithLabelValues(resultSkipped).Inc()

			continue
		}

		result.Warnings = append(result.Warnings, warnings...)

		if lead == nil {
			prometheus.LeadsImported.WithLabelValues(resultSkipped).Inc()
			continue
		}

		if len(telecallers) > 0 {
			lead.TelecallerID = &telecallers[Assign(result.SuccessfullyImported, len(telecallers))].ID
		}

		err = importService.EnquiryService.Insert(ctx, lead)
		if err != nil {
			if isContextError(err) {
				return nil, err
			}

			result.Warnings = append(result.Warnings, fmt.Sprintf("Row %d: %s", row.Number, apperr.Message(err)))
			prometheus.LeadsImported.WithLabelValues(resultSkipped).Inc()

			continue
		}

		result.SuccessfullyImported++
		prometheus.LeadsImported.WithLabelValues(resultCreated).Inc()
	}

	result.ArchiveURL = importService.archive(ctx, filename, data)

	logging.Logger.Info("Leads imported",
		zap.String("filename", filename),
		zap.Int("rows", len(rows)),
		zap.Int("imported", result.SuccessfullyImported),
		zap.Int("warnings", len(result.Warnings)),
	)

	importService.Publisher.Publish(ctx, events.New(events.TypeLeadsImported, filename, LeadsImportedPayload{
		Filename:   filename,
		Imported:   result.SuccessfullyImported,
		Warnings:   len(result.Warnings),
		ArchiveURL: result.ArchiveURL,
	}))

	return result, nil
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// build validates one row and resolves its lookups. A nil enquiry means the
// row is skipped.
func (importService *ImportService) build(
	ctx context.Context,
	principal access.Principal,
	row Row,
) (*enquiry.Enquiry, []string, error) {
	if row.Name == "" {
		return nil, []string{fmt.Sprintf("Row %d: Name is required", row.Number)}, nil
	}

	if row.Phone == "" {
		return nil, []string{fmt.Sprintf("Row %d: Phone is required", row.Number)}, nil
	}

	lookup, err := importService.CatalogService.Resolve(ctx, row.Course, row.Service)
	if err != nil {
		return nil, nil, err
	}

	warnings := make([]string, 0, len(lookup.Warnings))
	for _, warning := range lookup.Warnings {
		warnings = append(warnings, fmt.Sprintf("Row %d: %s", row.Number, warning))
	}

	lead := &enquiry.Enquiry{
		CandidateName: row.Name,
		Phone:         row.Phone,
		Email:         row.Email,
		Feedback:      row.Feedback,
		CourseID:      lookup.CourseID,
		ServiceID:     lookup.ServiceID,
		EnquirySource: enquiry.SourceImport,
		EnquiryStatus: enquiry.StatusActive,
		CreatedByRole: account.RoleAdmin,
		CreatedByName: account.RoleAdmin,
	}

	if principal.Account != nil {
		lead.CreatedByID = &principal.Account.ID
	}

	return lead, warnings, nil
}

// archive uploads the original file. Failures are logged and never fail the
// import.
func (importService *ImportService) archive(ctx context.Context, filename string, data []byte) string {
	if importService.Archiver == nil {
		return ""
	}

	format, err := Format(filename)
	if err != nil {
		return ""
	}

	contentType := contentTypeCSV
	if format == FormatXLSX {
		contentType = contentTypeXLSX
	}

	objectKey := fmt.Sprintf("%s/%s%s", importService.Now().UTC().Format("2006/01/02"), uuid.NewString(), format)

	url, err := importService.Archiver.Upload(ctx, data, objectKey, contentType)
	if err != nil {
		logging.Logger.Error("[ImportLeads] Failed to archive upload",
			zap.String("filename", filename),
			zap.String("object_key", objectKey),
			zap.String("error", err.Error()),
		)

		return ""
	}

	return url
}
