// Package providers defines the external verification collaborators. The
// license registry and identity vendor are black boxes that asynchronously
// return verdicts; the engine consumes only the verdict-bearing fields and
// treats transport failures as a step-validation failure, never a crash.
package providers

import "context"

// LicenseVerdict is the consumed portion of a license registry response.
type LicenseVerdict struct {
	Found      bool
	Name       string
	Specialty  string
	Confidence float64
}

// LicenseRegistry looks up a professional by document/license number.
type LicenseRegistry interface {
	Lookup(ctx context.Context, documentNumber string) (LicenseVerdict, error)
}

// IdentityStatus is a terminal status delivered by the identity vendor.
type IdentityStatus string

const (
	IdentityApproved IdentityStatus = "approved"
	IdentityDeclined IdentityStatus = "declined"
	IdentityInReview IdentityStatus = "in_review"
	IdentityExpired  IdentityStatus = "expired"
)

// AccessLevel is the platform access granted for an identity status.
type AccessLevel string

const (
	AccessFull    AccessLevel = "full"
	AccessLimited AccessLevel = "limited"
	AccessNone    AccessLevel = "none"
)

// AccessFor maps an identity verdict onto platform access: approved grants
// full access, in-review grants limited access while the vendor finishes,
// declined and expired grant none.
func AccessFor(status IdentityStatus) AccessLevel {
	switch status {
	case IdentityApproved:
		return AccessFull
	case IdentityInReview:
		return AccessLimited
	default:
		return AccessNone
	}
}

// IdentityProvider reports the current status for a verification reference.
type IdentityProvider interface {
	Status(ctx context.Context, referenceID string) (IdentityStatus, error)
}
