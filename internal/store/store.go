// Package store persists merchants, processors, monthly revenue, splits, and
// import progress behind a backend-neutral interface.
package store

import (
	"context"

	"github.com/sells-group/residuals-cli/internal/model"
)

// RevenueFilter narrows ListRevenue results.
type RevenueFilter struct {
	Processor  string   `json:"processor,omitempty"`
	MinRevenue *float64 `json:"min_revenue,omitempty"`
	MaxRevenue *float64 `json:"max_revenue,omitempty"`
}

// Store defines the persistence interface for the residuals engine.
//
// Revenue rows are written exclusively through UpsertRevenue, keyed on
// (month, merchant, processor), so repeated imports converge rather than
// accumulate. Assignment writes are full replacements of the targeted
// merchant x month scope inside one transaction.
type Store interface {
	// Identities (idempotent find-or-create)
	FindOrCreateMerchant(ctx context.Context, mid, name string) (*model.Merchant, error)
	FindOrCreateProcessor(ctx context.Context, name string) (*model.Processor, error)

	// Revenue
	UpsertRevenue(ctx context.Context, entries []model.RevenueEntry) (int, error)
	ListRevenue(ctx context.Context, month string, filter RevenueFilter) ([]model.RevenueEntry, error)

	// Import progress
	UpsertProgress(ctx context.Context, p model.ImportProgress) error
	GetProgress(ctx context.Context, month, processorID string) (*model.ImportProgress, error)

	// Assignments
	ReplaceAssignments(ctx context.Context, month string, merchantIDs []string, rows []model.Assignment) (int, error)
	ListAssignments(ctx context.Context, month string, merchantIDs []string) ([]model.Assignment, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
