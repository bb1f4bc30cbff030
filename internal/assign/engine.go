// Package assign computes and persists role-based commission splits per
// merchant per month.
package assign

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/residuals-cli/internal/model"
	"github.com/sells-group/residuals-cli/internal/store"
)

// Engine applies assignment rules against persisted revenue. Every write is
// a full replacement of the targeted merchant x month scope; rules within a
// request fail independently.
//
// Callers must not run overlapping-scope operations concurrently: the
// replace-set write is transactional per call, but two concurrent writers on
// the same scope still race on which final set survives.
type Engine struct {
	store store.Store
}

// NewEngine creates an Engine.
func NewEngine(st store.Store) *Engine {
	return &Engine{store: st}
}

// validateSplits enforces the 100%-sum invariant on a rule's splits.
func validateSplits(splits []model.Split) error {
	if len(splits) == 0 {
		return eris.New("assign: rule has no splits")
	}
	for _, s := range splits {
		if s.RoleID == "" {
			return eris.New("assign: split missing role")
		}
		if s.Percentage < 0 || s.Percentage > 100 {
			return eris.Errorf("assign: percentage %.2f out of [0, 100]", s.Percentage)
		}
	}
	if sum := model.SplitSum(splits); math.Abs(sum-100) > model.SplitEpsilon {
		return eris.Errorf("assign: split percentages sum to %.2f, want 100", sum)
	}
	return nil
}

// BulkAssign applies explicit merchant-list rules. A rule violating the sum
// invariant is rejected whole; sibling rules still apply.
func (e *Engine) BulkAssign(ctx context.Context, rules []model.AssignRule) (*model.AssignResult, error) {
	result := &model.AssignResult{}

	for n, rule := range rules {
		if err := e.applyRule(ctx, rule, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("rule %d: %s", n+1, err.Error()))
		}
	}

	result.Success = len(result.Errors) == 0
	zap.L().Info("assign: bulk complete",
		zap.Int("rules", len(rules)),
		zap.Int("assigned", result.AssignedCount),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

func (e *Engine) applyRule(ctx context.Context, rule model.AssignRule, result *model.AssignResult) error {
	if !model.ValidMonth(rule.Month) {
		return eris.Errorf("assign: invalid month %q", rule.Month)
	}
	if len(rule.MerchantIDs) == 0 {
		return eris.New("assign: rule targets no merchants")
	}
	if err := validateSplits(rule.Splits); err != nil {
		return err
	}

	rows := make([]model.Assignment, 0, len(rule.MerchantIDs)*len(rule.Splits))
	for _, mid := range rule.MerchantIDs {
		for _, s := range rule.Splits {
			rows = append(rows, model.Assignment{
				MerchantID: mid,
				RoleID:     s.RoleID,
				Month:      rule.Month,
				Percentage: s.Percentage,
			})
		}
	}

	n, err := e.store.ReplaceAssignments(ctx, rule.Month, rule.MerchantIDs, rows)
	if err != nil {
		return err
	}
	result.AssignedCount += n
	result.MerchantsProcessed += len(rule.MerchantIDs)
	return nil
}

// SmartAssign selects merchants by processor and/or revenue range against a
// month's revenue and applies the rule's default split to every match.
func (e *Engine) SmartAssign(ctx context.Context, rules []model.SmartRule) (*model.AssignResult, error) {
	result := &model.AssignResult{}

	for n, rule := range rules {
		merchantIDs, err := e.selectMerchants(ctx, rule)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("rule %d: %s", n+1, err.Error()))
			continue
		}
		if len(merchantIDs) == 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("rule %d: no merchants matched", n+1))
			continue
		}
		if err := e.applyRule(ctx, model.AssignRule{
			MerchantIDs: merchantIDs,
			Month:       rule.Month,
			Splits:      rule.Splits,
		}, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("rule %d: %s", n+1, err.Error()))
		}
	}

	result.Success = len(result.Errors) == 0
	return result, nil
}

// AssignByProcessor assigns one split set to every merchant with revenue
// under the given processor for the month.
func (e *Engine) AssignByProcessor(ctx context.Context, month, processor string, splits []model.Split) (*model.AssignResult, error) {
	return e.SmartAssign(ctx, []model.SmartRule{{
		Month:     month,
		Processor: processor,
		Splits:    splits,
	}})
}

func (e *Engine) selectMerchants(ctx context.Context, rule model.SmartRule) ([]string, error) {
	if !model.ValidMonth(rule.Month) {
		return nil, eris.Errorf("assign: invalid month %q", rule.Month)
	}
	entries, err := e.store.ListRevenue(ctx, rule.Month, store.RevenueFilter{
		Processor:  rule.Processor,
		MinRevenue: rule.MinRevenue,
		MaxRevenue: rule.MaxRevenue,
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var ids []string
	for _, e := range entries {
		if !seen[e.MerchantID] {
			seen[e.MerchantID] = true
			ids = append(ids, e.MerchantID)
		}
	}
	return ids, nil
}

// CopyForward copies assignment sets verbatim from one month to another,
// optionally scoped to a merchant subset. Percentages are not re-validated:
// they were valid when first written. The target scope is still replaced,
// not merged.
func (e *Engine) CopyForward(ctx context.Context, fromMonth, toMonth string, merchantIDs []string) (*model.CopyResult, error) {
	result := &model.CopyResult{}

	if !model.ValidMonth(fromMonth) || !model.ValidMonth(toMonth) {
		result.Errors = append(result.Errors, fmt.Sprintf("invalid month range %q -> %q", fromMonth, toMonth))
		return result, nil
	}
	if fromMonth == toMonth {
		result.Errors = append(result.Errors, "source and target month are the same")
		return result, nil
	}

	source, err := e.store.ListAssignments(ctx, fromMonth, merchantIDs)
	if err != nil {
		return nil, err
	}
	if len(source) == 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("no assignments found for %s", fromMonth))
		return result, nil
	}

	targetIDs := make([]string, 0)
	seen := make(map[string]bool)
	rows := make([]model.Assignment, 0, len(source))
	for _, a := range source {
		if !seen[a.MerchantID] {
			seen[a.MerchantID] = true
			targetIDs = append(targetIDs, a.MerchantID)
		}
		a.Month = toMonth
		rows = append(rows, a)
	}

	n, err := e.store.ReplaceAssignments(ctx, toMonth, targetIDs, rows)
	if err != nil {
		return nil, err
	}
	result.CopiedCount = n
	result.Success = true

	zap.L().Info("assign: copied forward",
		zap.String("from", fromMonth),
		zap.String("to", toMonth),
		zap.Int("rows", n),
		zap.Int("merchants", len(targetIDs)),
	)
	return result, nil
}

// UnassignedSummary reports merchants with revenue in a month but no
// assignment rows, in aggregate and grouped by processor.
func (e *Engine) UnassignedSummary(ctx context.Context, month string) (*model.UnassignedSummary, error) {
	if !model.ValidMonth(month) {
		return nil, eris.Errorf("assign: invalid month %q", month)
	}

	entries, err := e.store.ListRevenue(ctx, month, store.RevenueFilter{})
	if err != nil {
		return nil, err
	}
	assignments, err := e.store.ListAssignments(ctx, month, nil)
	if err != nil {
		return nil, err
	}

	assigned := make(map[string]bool, len(assignments))
	for _, a := range assignments {
		assigned[a.MerchantID] = true
	}

	summary := &model.UnassignedSummary{Month: month}
	byProc := make(map[string]*model.ProcessorUnassigned)
	for _, en := range entries {
		if en.Revenue <= 0 || assigned[en.MerchantID] {
			continue
		}
		summary.TotalUnassigned++
		summary.UnassignedRevenue += en.Revenue

		pu, ok := byProc[en.ProcessorName]
		if !ok {
			pu = &model.ProcessorUnassigned{Processor: en.ProcessorName}
			byProc[en.ProcessorName] = pu
		}
		pu.Count++
		pu.Revenue += en.Revenue
	}

	procs := make([]string, 0, len(byProc))
	for p := range byProc {
		procs = append(procs, p)
	}
	sort.Strings(procs)
	for _, p := range procs {
		summary.ByProcessor = append(summary.ByProcessor, *byProc[p])
	}
	return summary, nil
}
