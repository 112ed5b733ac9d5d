package enquiry

import (
	"strings"

	"gorm.io/datatypes"
)

const (
	StatusActive        = "Active"
	StatusFollowUp      = "Follow Up"
	StatusWalkIn        = "walk_in_list"
	StatusClosed        = "Closed"
	StatusNotInterested = "Not Interested"
	StatusConverted     = "Converted"
	StatusContacted     = "contacted"
	StatusInterested    = "interested"
)

var Statuses = []string{
	StatusActive,
	StatusFollowUp,
	StatusWalkIn,
	StatusClosed,
	StatusNotInterested,
	StatusConverted,
	StatusContacted,
	StatusInterested,
}

// ActiveExcluded are the statuses hidden from the active list.
var ActiveExcluded = []string{StatusClosed, StatusConverted, StatusNotInterested}

// ClosedStatuses make up the closed list.
var ClosedStatuses = []string{StatusClosed, StatusConverted}

const (
	SourceGoogle    = "Google"
	SourceFacebook  = "Facebook"
	SourceInstagram = "Instagram"
	SourceReferral  = "Referral"
	SourceWebsite   = "Website"
	SourceWalkIn    = "Walk In"
	SourceImport    = "Import"
	SourceOther     = "Other"
)

var Sources = []string{
	SourceGoogle,
	SourceFacebook,
	SourceInstagram,
	SourceReferral,
	SourceWebsite,
	SourceWalkIn,
	SourceImport,
	SourceOther,
}

const (
	OutcomeInterested          = "Interested"
	OutcomeNotInterested       = "Not Interested"
	OutcomeCallbackRequested   = "Callback Requested"
	OutcomeInformationProvided = "Information Provided"
	OutcomeFollowUp            = "Follow Up"
	OutcomeConverted           = "Converted"
	OutcomeDoNotCall           = "Do Not Call"
	OutcomeWalkIn              = "walk_in_list"
	OutcomeClosed              = "closed"
)

var Outcomes = []string{
	OutcomeInterested,
	OutcomeNotInterested,
	OutcomeCallbackRequested,
	OutcomeInformationProvided,
	OutcomeFollowUp,
	OutcomeConverted,
	OutcomeDoNotCall,
	OutcomeWalkIn,
	OutcomeClosed,
}

var outcomeAliases = map[string]string{
	"follow up required": OutcomeFollowUp,
	"follow-up required": OutcomeFollowUp,
}

// NormalizeOutcome maps an input outcome onto its stored form. ok is false
// for outcomes outside the declared set.
func NormalizeOutcome(outcome string) (string, bool) {
	outcome = strings.TrimSpace(outcome)

	if alias, found := outcomeAliases[strings.ToLower(outcome)]; found {
		return alias, true
	}

	for _, declared := range Outcomes {
		if declared == outcome {
			return declared, true
		}
	}

	return "", false
}

func ValidStatus(status string) bool {
	return contains(Statuses, status)
}

func ValidSource(source string) bool {
	return contains(Sources, source)
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}

	return false
}

// Transition is the effect an outcome has on its enquiry.
type Transition struct {
	Status       string
	CopyFollowUp bool
}

// Transitions lists the outcomes that move an enquiry. Declared outcomes
// missing from the table leave the status untouched.
var Transitions = map[string]Transition{
	OutcomeConverted:         {Status: StatusClosed},
	OutcomeNotInterested:     {Status: StatusNotInterested},
	OutcomeFollowUp:          {Status: StatusFollowUp, CopyFollowUp: true},
	OutcomeCallbackRequested: {Status: StatusFollowUp, CopyFollowUp: true},
}

// Change is the update a recorded outcome produces.
type Change struct {
	From    string
	To      string
	Updates map[string]any
}

func (c Change) StatusChanged() bool {
	return c.From != c.To
}

// Apply computes the enquiry update for an already normalized outcome. Any
// outcome may be recorded against any status.
func Apply(enquiry *Enquiry, outcome string, followUp *datatypes.Date) Change {
	change := Change{From: enquiry.EnquiryStatus, To: enquiry.EnquiryStatus, Updates: map[string]any{}}

	transition, ok := Transitions[outcome]
	if !ok {
		return change
	}

	change.To = transition.Status
	change.Updates["enquiry_status"] = transition.Status

	if transition.CopyFollowUp && followUp != nil {
		change.Updates["follow_up_on"] = *followUp
	}

	return change
}

// Commit copies a change onto the in-memory enquiry after it was persisted.
func (c Change) Commit(enquiry *Enquiry) {
	enquiry.EnquiryStatus = c.To

	if followUp, ok := c.Updates["follow_up_on"].(datatypes.Date); ok {
		enquiry.FollowUpOn = &followUp
	}
}
