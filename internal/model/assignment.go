package model

// Well-known role identifiers for commission splits. RoleID is open-ended;
// these cover the standard recipients.
const (
	RoleAgent        = "agent"
	RolePartner      = "partner"
	RoleSalesManager = "sales_manager"
	RoleCompany      = "company"
	RoleAssociation  = "association"
)

// Assignment is one role's percentage share of a merchant's net revenue for a
// month. Per merchant and month, percentages across all rows sum to 100
// (within SplitEpsilon) or the merchant has no rows at all.
type Assignment struct {
	MerchantID string  `json:"merchant_id"`
	RoleID     string  `json:"role_id"`
	Month      string  `json:"month"`
	Percentage float64 `json:"percentage"`
}

// SplitEpsilon is the tolerance on the 100%-sum invariant.
const SplitEpsilon = 0.01

// Split pairs a role with its percentage within a rule.
type Split struct {
	RoleID     string  `json:"role_id"`
	Percentage float64 `json:"percentage"`
}

// SplitSum returns the total percentage across splits.
func SplitSum(splits []Split) float64 {
	var sum float64
	for _, s := range splits {
		sum += s.Percentage
	}
	return sum
}

// AssignRule targets an explicit merchant list with an explicit split set.
type AssignRule struct {
	MerchantIDs []string `json:"merchant_ids"`
	Month       string   `json:"month"`
	Splits      []Split  `json:"splits"`
}

// SmartRule selects merchants by processor and/or revenue range against a
// month's revenue data and applies one default split to every match.
type SmartRule struct {
	Month      string   `json:"month"`
	Processor  string   `json:"processor,omitempty"`
	MinRevenue *float64 `json:"min_revenue,omitempty"`
	MaxRevenue *float64 `json:"max_revenue,omitempty"`
	Splits     []Split  `json:"splits"`
}

// AssignResult reports the outcome of a batch of assignment rules. Rules fail
// independently: a rejected rule lands in Errors without affecting siblings.
type AssignResult struct {
	Success            bool     `json:"success"`
	AssignedCount      int      `json:"assigned_count"`
	MerchantsProcessed int      `json:"merchants_processed"`
	Errors             []string `json:"errors,omitempty"`
}

// CopyResult reports the outcome of a copy-forward operation.
type CopyResult struct {
	Success     bool     `json:"success"`
	CopiedCount int      `json:"copied_count"`
	Errors      []string `json:"errors,omitempty"`
}

// ProcessorUnassigned groups unassigned merchants under one processor.
type ProcessorUnassigned struct {
	Processor string  `json:"processor"`
	Count     int     `json:"count"`
	Revenue   float64 `json:"revenue"`
}

// UnassignedSummary lists merchants that earned revenue in a month but have
// no assignment rows.
type UnassignedSummary struct {
	Month             string                `json:"month"`
	TotalUnassigned   int                   `json:"total_unassigned"`
	UnassignedRevenue float64               `json:"unassigned_revenue"`
	ByProcessor       []ProcessorUnassigned `json:"by_processor,omitempty"`
}
