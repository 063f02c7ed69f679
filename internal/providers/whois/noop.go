package whois

import (
	"context"

	"github.com/davmora/siteforge/internal/sitegen"
)

// Noop reports every domain as unknown. Used when no APILayer key is
// configured so jobs with verification enabled still complete.
type Noop struct{}

// NewNoop returns the offline checker.
func NewNoop() *Noop { return &Noop{} }

// CheckAvailability always returns unknown.
func (Noop) CheckAvailability(_ context.Context, _ string) (sitegen.DomainAvailability, error) {
	return sitegen.DomainUnknown, nil
}
