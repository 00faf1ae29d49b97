package project

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultClosedMarker is the token a closure status must contain to count as
// closed.
const DefaultClosedMarker = "نعم"

// KPIs are the scalar summaries shown above the table.
type KPIs struct {
	ProjectCount   int             `json:"project_count"`
	TotalEstimated decimal.Decimal `json:"total_estimated"`
	TotalContract  decimal.Decimal `json:"total_contract"`
	BudgetDelta    decimal.Decimal `json:"budget_delta"`
	ClosedCount    int             `json:"closed_count"`
}

// Aggregate computes KPIs over records. An empty slice yields zeros.
// closedMarker is matched case-sensitively as a substring; an empty marker
// falls back to DefaultClosedMarker.
func Aggregate(records []Record, closedMarker string) KPIs {
	if closedMarker == "" {
		closedMarker = DefaultClosedMarker
	}
	k := KPIs{
		TotalEstimated: decimal.Zero,
		TotalContract:  decimal.Zero,
	}
	for _, r := range records {
		k.ProjectCount++
		k.TotalEstimated = k.TotalEstimated.Add(r.EstimatedCost)
		k.TotalContract = k.TotalContract.Add(r.ContractValue)
		if r.ClosureProgress != "" && strings.Contains(r.ClosureProgress, closedMarker) {
			k.ClosedCount++
		}
	}
	k.BudgetDelta = k.TotalEstimated.Sub(k.TotalContract)
	return k
}

// KPIDisplay is KPIs rendered as metric-widget text.
type KPIDisplay struct {
	ProjectCount   string `json:"project_count"`
	TotalEstimated string `json:"total_estimated"`
	TotalContract  string `json:"total_contract"`
	BudgetDelta    string `json:"budget_delta"`
	ClosedCount    string `json:"closed_count"`
}

// Display formats k with grouped thousands and whole-unit currency.
func (k KPIs) Display(tag language.Tag) KPIDisplay {
	p := message.NewPrinter(tag)
	return KPIDisplay{
		ProjectCount:   p.Sprintf("%d", k.ProjectCount),
		TotalEstimated: p.Sprintf("$%.0f", k.TotalEstimated.InexactFloat64()),
		TotalContract:  p.Sprintf("$%.0f", k.TotalContract.InexactFloat64()),
		BudgetDelta:    p.Sprintf("%.0f", k.BudgetDelta.InexactFloat64()),
		ClosedCount:    p.Sprintf("%d", k.ClosedCount),
	}
}

// CostPoint pairs a project's estimated cost with its contract value.
type CostPoint struct {
	Name          string          `json:"name"`
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
	ContractValue decimal.Decimal `json:"contract_value"`
}

// FundingShare is the contract value attributed to one funding source.
type FundingShare struct {
	Source        string          `json:"source"`
	ContractValue decimal.Decimal `json:"contract_value"`
}

// CostComparison returns one point per record in table order.
func CostComparison(records []Record) []CostPoint {
	out := make([]CostPoint, 0, len(records))
	for _, r := range records {
		out = append(out, CostPoint{
			Name:          r.ProcurementName,
			EstimatedCost: r.EstimatedCost,
			ContractValue: r.ContractValue,
		})
	}
	return out
}

// FundingDistribution sums contract value per funding source, first-seen order.
func FundingDistribution(records []Record) []FundingShare {
	idx := map[string]int{}
	out := []FundingShare{}
	for _, r := range records {
		i, ok := idx[r.FundingSource]
		if !ok {
			i = len(out)
			idx[r.FundingSource] = i
			out = append(out, FundingShare{Source: r.FundingSource, ContractValue: decimal.Zero})
		}
		out[i].ContractValue = out[i].ContractValue.Add(r.ContractValue)
	}
	return out
}
