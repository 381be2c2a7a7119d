package ports

import (
	"context"
	"errors"
)

var ErrOrganizationNotFound = errors.New("organization not found")

type Organization struct {
	OrganizationID string
	Name           string
	UsageCount     int64
	MonthlyLimit   int64
}

type OrganizationRepository interface {
	GetOrganization(ctx context.Context, organizationID string) (Organization, error)
	EnsureOrganization(ctx context.Context, organizationID string, name string) (Organization, error)

	// IncrementUsage adds one to the organization's usage counter as a
	// single atomic database operation, never read-modify-write, so
	// concurrent check completions cannot lose updates.
	IncrementUsage(ctx context.Context, organizationID string) error
}
