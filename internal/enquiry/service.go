package enquiry

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/access"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/account"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/apperr"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/logging"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/phone"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/query"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/telecaller"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type EnquiryService struct {
	EnquiryRepository    *EnquiryRepository
	TelecallerRepository *telecaller.TelecallerRepository
	Now                  func() time.Time
}

func NewService(dbConn *gorm.DB) *EnquiryService {
	return &EnquiryService{
		EnquiryRepository:    NewEnquiryRepository(dbConn),
		TelecallerRepository: telecaller.NewTelecallerRepository(dbConn),
		Now:                  time.Now,
	}
}

type CreateInput struct {
	CandidateName string
	Phone         string
	Phone2        string
	Email         string
	Feedback      string
	EnquirySource string
	EnquiryStatus string
	FollowUpOn    *time.Time
	CourseID      *uint
	ServiceID     *uint
	MettadID      *uint
	BranchID      *uint
	AssignedByID  *uint
}

// Create stores an enquiry created through the API. Admins assign it
// explicitly; telecallers always get it assigned to themselves.
func (enquiryService *EnquiryService) Create(
	ctx context.Context,
	principal access.Principal,
	input CreateInput,
) (*Enquiry, error) {
	validation := &apperr.ValidationError{}

	enquiry := &Enquiry{
		CandidateName: strings.TrimSpace(input.CandidateName),
		Phone:         phone.Normalize(input.Phone, ""),
		Phone2:        phone.Normalize(input.Phone2, ""),
		Email:         strings.ToLower(strings.TrimSpace(input.Email)),
		Feedback:      input.Feedback,
		EnquirySource: input.EnquirySource,
		EnquiryStatus: input.EnquiryStatus,
		CourseID:      input.CourseID,
		ServiceID:     input.ServiceID,
		MettadID:      input.MettadID,
		BranchID:      input.BranchID,
		CreatedByID:   &principal.Account.ID,
		CreatedByRole: principal.Account.Role.Name,
	}

	if input.FollowUpOn != nil {
		followUp := query.ToDate(*input.FollowUpOn)
		enquiry.FollowUpOn = &followUp
	}

	enquiryService.validate(enquiry, validation)

	if principal.Policy.IsAdmin() {
		enquiry.CreatedByName = account.RoleAdmin

		if input.AssignedByID == nil {
			validation.Add("assigned_by_id", "assigned_by is required when created_by is Admin.")
		} else {
			assignee, err := enquiryService.assignee(ctx, *input.AssignedByID)
			if err != nil {
				return nil, err
			}

			if assignee == nil {
				validation.Add("assigned_by_id", "Invalid telecaller, object does not exist.")
			} else {
				enquiry.TelecallerID = &assignee.ID
			}
		}
	} else {
		telecallerID, ok := principal.Policy.TelecallerID()
		if !ok {
			return nil, apperr.NewValidation(
				apperr.NonFieldErrors,
				"Only telecallers can create enquiry without assigning manually.",
			)
		}

		enquiry.TelecallerID = &telecallerID
		enquiry.CreatedByName = principal.Account.Email

		assignee, err := enquiryService.assignee(ctx, telecallerID)
		if err != nil {
			return nil, err
		}

		if assignee != nil {
			enquiry.CreatedByName = assignee.Name
		}
	}

	if err := validation.OrNil(); err != nil {
		return nil, err
	}

	err := enquiryService.EnquiryRepository.Create(ctx, enquiry)
	if err != nil {
		return nil, err
	}

	return enquiryService.Get(ctx, principal.Policy, enquiry.ID)
}

func (enquiryService *EnquiryService) assignee(ctx context.Context, telecallerID uint) (*telecaller.Telecaller, error) {
	assignee, err := enquiryService.TelecallerRepository.GetByID(ctx, telecallerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	return assignee, err
}

func (enquiryService *EnquiryService) validate(enquiry *Enquiry, validation *apperr.ValidationError) {
	if enquiry.CandidateName == "" {
		validation.Add("candidate_name", "This field is required.")
	}

	if !phone.Valid(enquiry.Phone) {
		validation.Add("phone", "Enter a valid phone number.")
	}

	if enquiry.Phone2 != "" && !phone.Valid(enquiry.Phone2) {
		validation.Add("phone2", "Enter a valid phone number.")
	}

	if enquiry.EnquirySource == "" {
		enquiry.EnquirySource = SourceOther
	} else if !ValidSource(enquiry.EnquirySource) {
		validation.Add("enquiry_source", "\""+enquiry.EnquirySource+"\" is not a valid choice.")
	}

	if enquiry.EnquiryStatus == "" {
		enquiry.EnquiryStatus = StatusActive
	} else if !ValidStatus(enquiry.EnquiryStatus) {
		validation.Add("enquiry_status", "\""+enquiry.EnquiryStatus+"\" is not a valid choice.")
	}
}

// Insert stores a system-generated enquiry (bulk import, lead capture) after
// normalizing its phone numbers. Assignment is the caller's job.
func (enquiryService *EnquiryService) Insert(ctx context.Context, enquiry *Enquiry) error {
	enquiry.CandidateName = strings.TrimSpace(enquiry.CandidateName)
	enquiry.Phone = phone.Normalize(enquiry.Phone, "")
	enquiry.Phone2 = phone.Normalize(enquiry.Phone2, "")
	enquiry.Email = strings.ToLower(strings.TrimSpace(enquiry.Email))

	validation := &apperr.ValidationError{}
	enquiryService.validate(enquiry, validation)

	if err := validation.OrNil(); err != nil {
		return err
	}

	return enquiryService.EnquiryRepository.Create(ctx, enquiry)
}

// LeastLoadedTelecaller returns the assignee for a captured lead, or nil.
func (enquiryService *EnquiryService) LeastLoadedTelecaller(ctx context.Context) (*uint, error) {
	return enquiryService.EnquiryRepository.LeastLoadedTelecaller(ctx)
}

func (enquiryService *EnquiryService) Get(ctx context.Context, policy access.Policy, enquiryID uint) (*Enquiry, error) {
	enquiry, err := enquiryService.EnquiryRepository.GetByID(ctx, policy, enquiryID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("enquiry")
	}

	return enquiry, err
}

func (enquiryService *EnquiryService) List(
	ctx context.Context,
	policy access.Policy,
	filter Filter,
	page query.Page,
) (query.Result[Enquiry], error) {
	return enquiryService.EnquiryRepository.List(ctx, policy, filter, page)
}

// ListActive lists enquiries still being worked on.
func (enquiryService *EnquiryService) ListActive(
	ctx context.Context,
	policy access.Policy,
	filter Filter,
	page query.Page,
) (query.Result[Enquiry], error) {
	filter.ExcludeStatuses = ActiveExcluded

	return enquiryService.EnquiryRepository.List(ctx, policy, filter, page)
}

func (enquiryService *EnquiryService) ListClosed(
	ctx context.Context,
	policy access.Policy,
	filter Filter,
	page query.Page,
) (query.Result[Enquiry], error) {
	filter.Statuses = ClosedStatuses

	return enquiryService.EnquiryRepository.List(ctx, policy, filter, page)
}

func (enquiryService *EnquiryService) FindAll(ctx context.Context, policy access.Policy, filter Filter) ([]Enquiry, error) {
	return enquiryService.EnquiryRepository.FindAll(ctx, policy, filter)
}

func (enquiryService *EnquiryService) Count(ctx context.Context, policy access.Policy, filter Filter) (int64, error) {
	return enquiryService.EnquiryRepository.Count(ctx, policy, filter)
}

func (enquiryService *EnquiryService) CountPendingFollowUps(ctx context.Context, policy access.Policy) (int64, error) {
	return enquiryService.EnquiryRepository.CountPendingFollowUps(ctx, policy, enquiryService.Now())
}

type UpdateInput struct {
	CandidateName *string
	Phone         *string
	Phone2        *string
	Email         *string
	Feedback      *string
	EnquirySource *string
	EnquiryStatus *string
	FollowUpOn    *time.Time
	CourseID      *uint
	ServiceID     *uint
	MettadID      *uint
	BranchID      *uint
	AssignedByID  *uint
}

func (input UpdateInput) updates(validation *apperr.ValidationError) map[string]any {
	updates := map[string]any{}

	if input.CandidateName != nil {
		name := strings.TrimSpace(*input.CandidateName)
		if name == "" {
			validation.Add("candidate_name", "This field may not be blank.")
		}

		updates["candidate_name"] = name
	}

	if input.Phone != nil {
		normalized := phone.Normalize(*input.Phone, "")
		if !phone.Valid(normalized) {
			validation.Add("phone", "Enter a valid phone number.")
		}

		updates["phone"] = normalized
	}

	if input.Phone2 != nil {
		updates["phone2"] = phone.Normalize(*input.Phone2, "")
	}

	if input.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*input.Email))
	}

	if input.Feedback != nil {
		updates["feedback"] = *input.Feedback
	}

	if input.EnquirySource != nil {
		if !ValidSource(*input.EnquirySource) {
			validation.Add("enquiry_source", "\""+*input.EnquirySource+"\" is not a valid choice.")
		}

		updates["enquiry_source"] = *input.EnquirySource
	}

	if input.EnquiryStatus != nil {
		if !ValidStatus(*input.EnquiryStatus) {
			validation.Add("enquiry_status", "\""+*input.EnquiryStatus+"\" is not a valid choice.")
		}

		updates["enquiry_status"] = *input.EnquiryStatus
	}

	if input.FollowUpOn != nil {
		updates["follow_up_on"] = query.ToDate(*input.FollowUpOn)
	}

	for column, value := range map[string]*uint{
		"course_id":  input.CourseID,
		"service_id": input.ServiceID,
		"mettad_id":  input.MettadID,
		"branch_id":  input.BranchID,
	} {
		if value != nil {
			updates[column] = *value
		}
	}

	return updates
}

// Update applies a partial update. Only admins may reassign an enquiry.
func (enquiryService *EnquiryService) Update(
	ctx context.Context,
	policy access.Policy,
	enquiryID uint,
	input UpdateInput,
) (*Enquiry, error) {
	enquiry, err := enquiryService.Get(ctx, policy, enquiryID)
	if err != nil {
		return nil, err
	}

	validation := &apperr.ValidationError{}
	updates := input.updates(validation)

	if input.AssignedByID != nil {
		if !policy.IsAdmin() {
			return nil, apperr.Forbidden("only admins can reassign an enquiry")
		}

		assignee, err := enquiryService.assignee(ctx, *input.AssignedByID)
		if err != nil {
			return nil, err
		}

		if assignee == nil {
			validation.Add("assigned_by_id", "Invalid telecaller, object does not exist.")
		} else {
			updates["telecaller_id"] = assignee.ID
		}
	}

	if err := validation.OrNil(); err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		err = enquiryService.EnquiryRepository.Update(ctx, enquiry.ID, updates)
		if err != nil {
			return nil, err
		}
	}

	return enquiryService.Get(ctx, policy, enquiryID)
}

func (enquiryService *EnquiryService) Delete(ctx context.Context, policy access.Policy, enquiryID uint) error {
	if !policy.IsAdmin() {
		return apperr.Forbidden("only admins can delete enquiries")
	}

	_, err := enquiryService.Get(ctx, policy, enquiryID)
	if err != nil {
		return err
	}

	err = enquiryService.EnquiryRepository.Delete(ctx, enquiryID)
	if err == nil {
		logging.Logger.Info("enquiry deleted", zap.Uint("enquiry_id", enquiryID))
	}

	return err
}

type TelecallerSummary struct {
	TelecallerID   *uint            `json:"telecaller_id"`
	TelecallerName string           `json:"telecaller_name"`
	Total          int64            `json:"total"`
	ByStatus       map[string]int64 `json:"by_status"`
}

// Summary counts the scoped enquiries per telecaller and status. Unassigned
// enquiries are reported under an empty telecaller.
func (enquiryService *EnquiryService) Summary(ctx context.Context, policy access.Policy) ([]TelecallerSummary, error) {
	counts, err := enquiryService.EnquiryRepository.CountByTelecallerAndStatus(ctx, policy)
	if err != nil {
		return nil, err
	}

	summaries := map[uint]*TelecallerSummary{}
	var unassigned *TelecallerSummary
	var telecallerIDs []uint

	for _, count := range counts {
		var summary *TelecallerSummary

		if count.TelecallerID == nil {
			if unassigned == nil {
				unassigned = &TelecallerSummary{TelecallerName: "Unassigned", ByStatus: map[string]int64{}}
			}

			summary = unassigned
		} else {
			summary = summaries[*count.TelecallerID]
			if summary == nil {
				id := *count.TelecallerID
				summary = &TelecallerSummary{TelecallerID: &id, ByStatus: map[string]int64{}}
				summaries[id] = summary
				telecallerIDs = append(telecallerIDs, id)
			}
		}

		summary.ByStatus[count.EnquiryStatus] += count.Total
		summary.Total += count.Total
	}

	telecallers, err := enquiryService.TelecallerRepository.GetByIDs(ctx, telecallerIDs)
	if err != nil {
		return nil, err
	}

	for _, t := range telecallers {
		summaries[t.ID].TelecallerName = t.Name
	}

	result := make([]TelecallerSummary, 0, len(summaries)+1)
	for _, summary := range summaries {
		result = append(result, *summary)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].TelecallerName != result[j].TelecallerName {
			return result[i].TelecallerName < result[j].TelecallerName
		}

		return *result[i].TelecallerID < *result[j].TelecallerID
	})

	if unassigned != nil {
		result = append(result, *unassigned)
	}

	return result, nil
}

type Statistics struct {
	Total    int64            `json:"total_enquiries"`
	Active   int64            `json:"active_enquiries"`
	Closed   int64            `json:"closed_enquiries"`
	ByStatus map[string]int64 `json:"by_status"`
	BySource map[string]int64 `json:"by_source"`
}

func (enquiryService *EnquiryService) Statistics(ctx context.Context, policy access.Policy) (*Statistics, error) {
	byStatus, err := enquiryService.EnquiryRepository.CountBy(ctx, policy, "enquiry_status")
	if err != nil {
		return nil, err
	}

	bySource, err := enquiryService.EnquiryRepository.CountBy(ctx, policy, "enquiry_source")
	if err != nil {
		return nil, err
	}

	stats := &Statistics{
		ByStatus: make(map[string]int64, len(byStatus)),
		BySource: make(map[string]int64, len(bySource)),
	}

	for _, count := range byStatus {
		stats.ByStatus[count.GroupKey] = count.Total
		stats.Total += count.Total

		switch {
		case contains(ClosedStatuses, count.GroupKey):
			stats.Closed += count.Total
		case !contains(ActiveExcluded, count.GroupKey):
			stats.Active += count.Total
		}
	}

	for _, count := range bySource {
		stats.BySource[count.GroupKey] = count.Total
	}

	return stats, nil
}
