package application

import "fmt"

// CostPerInspection is the average compute cost billed per processed inspection, in USD.
const CostPerInspection = 0.08

// CostEstimate is the estimated processing spend shown on the dashboard.
type CostEstimate struct {
	Inspections   int
	PerInspection float64
	Total         float64
}

// EstimateCost estimates the processing spend for a number of inspections.
// Negative counts are treated as zero.
func EstimateCost(inspectionCount int) CostEstimate {
	if inspectionCount < 0 {
		inspectionCount = 0
	}
	return CostEstimate{
		Inspections:   inspectionCount,
		PerInspection: CostPerInspection,
		Total:         float64(inspectionCount) * CostPerInspection,
	}
}

// String formats the total as dollars, e.g. "$0.24".
func (c CostEstimate) String() string {
	return fmt.Sprintf("$%.2f", c.Total)
}
