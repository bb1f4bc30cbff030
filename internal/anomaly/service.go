package anomaly

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/residuals-cli/internal/model"
	"github.com/sells-group/residuals-cli/internal/store"
)

// ReportFromStore builds an audit report for a month from persisted revenue,
// loading the previous month for variance checks.
func (d *Detector) ReportFromStore(ctx context.Context, st store.Store, month string) (*model.AuditReport, error) {
	if !model.ValidMonth(month) {
		return nil, eris.Errorf("anomaly: invalid month %q", month)
	}

	current, err := st.ListRevenue(ctx, month, store.RevenueFilter{})
	if err != nil {
		return nil, err
	}

	batches := make(map[string][]model.RevenueRecord)
	for _, e := range current {
		batches[e.ProcessorName] = append(batches[e.ProcessorName], model.RevenueRecord{
			MID:          e.MID,
			Name:         e.MerchantName,
			Revenue:      e.Revenue,
			Volume:       e.Volume,
			Transactions: e.Transactions,
			Processor:    e.ProcessorName,
			Month:        e.Month,
		})
	}

	var previous map[string]float64
	if prevMonth := model.PrevMonth(month); prevMonth != "" {
		prev, err := st.ListRevenue(ctx, prevMonth, store.RevenueFilter{})
		if err != nil {
			return nil, err
		}
		if len(prev) > 0 {
			previous = make(map[string]float64, len(prev))
			for _, e := range prev {
				previous[e.MID] += e.Revenue
			}
		}
	}

	return d.BuildReport(month, batches, nil, previous), nil
}
