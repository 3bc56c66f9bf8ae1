package providers

import (
	"context"
	"fmt"
	"sync"

	"medboard/pkg/platform/sentinel"
)

// StaticLicenseRegistry serves verdicts from a fixed table, for development
// and tests. Unknown document numbers return a not-found verdict, not an
// error; errors are reserved for the registry being unreachable.
type StaticLicenseRegistry struct {
	mu       sync.RWMutex
	verdicts map[string]LicenseVerdict
	down     bool
}

func NewStaticLicenseRegistry() *StaticLicenseRegistry {
	return &StaticLicenseRegistry{verdicts: make(map[string]LicenseVerdict)}
}

// SetVerdict seeds the verdict for a document number.
func (r *StaticLicenseRegistry) SetVerdict(documentNumber string, verdict LicenseVerdict) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verdicts[documentNumber] = verdict
}

// SetDown toggles simulated unavailability.
func (r *StaticLicenseRegistry) SetDown(down bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.down = down
}

func (r *StaticLicenseRegistry) Lookup(_ context.Context, documentNumber string) (LicenseVerdict, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.down {
		return LicenseVerdict{}, fmt.Errorf("%w: license registry", sentinel.ErrUnavailable)
	}
	return r.verdicts[documentNumber], nil
}

// StaticIdentityProvider serves identity statuses from a fixed table.
type StaticIdentityProvider struct {
	mu       sync.RWMutex
	statuses map[string]IdentityStatus
	down     bool
}

func NewStaticIdentityProvider() *StaticIdentityProvider {
	return &StaticIdentityProvider{statuses: make(map[string]IdentityStatus)}
}

// SetStatus seeds the status for a reference id.
func (p *StaticIdentityProvider) SetStatus(referenceID string, status IdentityStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses[referenceID] = status
}

// SetDown toggles simulated unavailability.
func (p *StaticIdentityProvider) SetDown(down bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.down = down
}

func (p *StaticIdentityProvider) Status(_ context.Context, referenceID string) (IdentityStatus, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.down {
		return "", fmt.Errorf("%w: identity provider", sentinel.ErrUnavailable)
	}
	status, ok := p.statuses[referenceID]
	if !ok {
		return "", fmt.Errorf("%w: unknown reference %s", sentinel.ErrNotFound, referenceID)
	}
	return status, nil
}
