package hiring_test

import (
	"testing"

	"UnjobCore/internal/hiring"
	"UnjobCore/internal/models"
)

func TestParseStatus_ValidValues(t *testing.T) {
	valid := []string{"pending", "payment_pending", "accepted", "rejected"}
	for _, s := range valid {
		got, err := hiring.ParseStatus(s)
		if err != nil {
			t.Errorf("ParseStatus(%q) returned unexpected error: %v", s, err)
		}
		if string(got) != s {
			t.Errorf("ParseStatus(%q) = %q, want %q", s, got, s)
		}
	}
}

func TestParseStatus_InvalidValue(t *testing.T) {
	_, err := hiring.ParseStatus("cancelled")
	if err == nil {
		t.Error("ParseStatus(\"cancelled\") expected error, got nil")
	}
}

func TestParseStatus_EmptyString(t *testing.T) {
	_, err := hiring.ParseStatus("")
	if err == nil {
		t.Error("ParseStatus(\"\") expected error, got nil")
	}
}

func TestIsTransitionAllowed_Valid(t *testing.T) {
	cases := []struct {
		from models.ApplicationStatus
		to   models.ApplicationStatus
	}{
		{models.ApplicationPending, models.ApplicationPaymentPending},
		{models.ApplicationPending, models.ApplicationRejected},
		{models.ApplicationPaymentPending, models.ApplicationAccepted},
		{models.ApplicationPaymentPending, models.ApplicationPending}, // payment failed, retry path
	}
	for _, c := range cases {
		if !hiring.IsTransitionAllowed(c.from, c.to) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be true", c.from, c.to)
		}
	}
}

func TestIsTransitionAllowed_FromTerminal(t *testing.T) {
	terminals := []models.ApplicationStatus{models.ApplicationAccepted, models.ApplicationRejected}
	targets := []models.ApplicationStatus{
		models.ApplicationPending,
		models.ApplicationPaymentPending,
		models.ApplicationAccepted,
		models.ApplicationRejected,
	}
	for _, from := range terminals {
		for _, to := range targets {
			if hiring.IsTransitionAllowed(from, to) {
				t.Errorf("IsTransitionAllowed(%s → %s) should be false (terminal state)", from, to)
			}
		}
	}
}

func TestIsTransitionAllowed_SkipLevel(t *testing.T) {
	cases := []struct {
		from models.ApplicationStatus
		to   models.ApplicationStatus
	}{
		{models.ApplicationPending, models.ApplicationAccepted},         // must pass through payment_pending
		{models.ApplicationPaymentPending, models.ApplicationRejected}, // reject only while pending
	}
	for _, c := range cases {
		if hiring.IsTransitionAllowed(c.from, c.to) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be false", c.from, c.to)
		}
	}
}

func TestIsTransitionAllowed_Self(t *testing.T) {
	all := []models.ApplicationStatus{
		models.ApplicationPending,
		models.ApplicationPaymentPending,
		models.ApplicationAccepted,
		models.ApplicationRejected,
	}
	for _, s := range all {
		if hiring.IsTransitionAllowed(s, s) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be false (self)", s, s)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if !hiring.IsTerminal(models.ApplicationAccepted) || !hiring.IsTerminal(models.ApplicationRejected) {
		t.Error("accepted and rejected should be terminal")
	}
	if hiring.IsTerminal(models.ApplicationPending) || hiring.IsTerminal(models.ApplicationPaymentPending) {
		t.Error("pending and payment_pending should not be terminal")
	}
}
