package enquiry_test

import (
	"testing"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/enquiry"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestNormalizeOutcome(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{name: "declared", input: "Interested", expected: enquiry.OutcomeInterested, ok: true},
		{name: "alias", input: "Follow Up Required", expected: enquiry.OutcomeFollowUp, ok: true},
		{name: "hyphenated alias", input: " follow-up required ", expected: enquiry.OutcomeFollowUp, ok: true},
		{name: "walk in", input: "walk_in_list", expected: enquiry.OutcomeWalkIn, ok: true},
		{name: "undeclared", input: "Maybe Later", ok: false},
		{name: "case matters for declared outcomes", input: "interested", ok: false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			normalized, ok := enquiry.NormalizeOutcome(testCase.input)
			require.Equal(t, testCase.ok, ok)
			require.Equal(t, testCase.expected, normalized)
		})
	}
}

func TestApply(t *testing.T) {
	t.Parallel()

	followUp := datatypes.Date(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	testCases := []struct {
		name           string
		from           string
		outcome        string
		expectedStatus string
		copiesFollowUp bool
	}{
		{name: "converted closes", from: enquiry.StatusActive, outcome: enquiry.OutcomeConverted, expectedStatus: enquiry.StatusClosed},
		{name: "not interested", from: enquiry.StatusFollowUp, outcome: enquiry.OutcomeNotInterested, expectedStatus: enquiry.StatusNotInterested},
		{name: "follow up copies date", from: enquiry.StatusActive, outcome: enquiry.OutcomeFollowUp, expectedStatus: enquiry.StatusFollowUp, copiesFollowUp: true},
		{name: "callback copies date", from: enquiry.StatusActive, outcome: enquiry.OutcomeCallbackRequested, expectedStatus: enquiry.StatusFollowUp, copiesFollowUp: true},
		{name: "closed enquiry can reopen", from: enquiry.StatusClosed, outcome: enquiry.OutcomeFollowUp, expectedStatus: enquiry.StatusFollowUp, copiesFollowUp: true},
		{name: "interested leaves status", from: enquiry.StatusActive, outcome: enquiry.OutcomeInterested, expectedStatus: enquiry.StatusActive},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			e := &enquiry.Enquiry{EnquiryStatus: testCase.from}

			change := enquiry.Apply(e, testCase.outcome, &followUp)
			require.Equal(t, testCase.from, change.From)
			require.Equal(t, testCase.expectedStatus, change.To)
			require.Equal(t, testCase.from != testCase.expectedStatus, change.StatusChanged())

			_, copied := change.Updates["follow_up_on"]
			require.Equal(t, testCase.copiesFollowUp, copied)

			change.Commit(e)
			require.Equal(t, testCase.expectedStatus, e.EnquiryStatus)

			if testCase.copiesFollowUp {
				require.Equal(t, "2024-05-01", *enquiry.FormatDate(e.FollowUpOn))
			}
		})
	}
}

func TestApplyWithoutFollowUpDate(t *testing.T) {
	t.Parallel()

	e := &enquiry.Enquiry{EnquiryStatus: enquiry.StatusActive}

	change := enquiry.Apply(e, enquiry.OutcomeFollowUp, nil)
	require.Equal(t, enquiry.StatusFollowUp, change.To)
	require.NotContains(t, change.Updates, "follow_up_on")
}
