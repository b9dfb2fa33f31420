package telegram

import (
	"fmt"
	"strings"
	"time"
)

// SettlementSummary holds the per-pass figures reported to the operator chat.
type SettlementSummary struct {
	StartedAt         time.Time
	SignalsResolved   int
	SignalsSucceeded  int
	SignalsFailed     int
	InvestmentsSet    int
	TotalProfitPaid   float64
	TotalReinvested   float64
	FailedSignalNames []string
}

// FormatSettlementSummary renders a settlement pass summary as a Markdown message.
func FormatSettlementSummary(s SettlementSummary) string {
	var b strings.Builder
	b.WriteString("*Settlement pass*\n")
	b.WriteString(fmt.Sprintf("Started: %s\n", s.StartedAt.Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf("Signals resolved: %d (success %d / failure %d)\n",
		s.SignalsResolved, s.SignalsSucceeded, s.SignalsFailed))
	b.WriteString(fmt.Sprintf("Investments settled: %d\n", s.InvestmentsSet))
	b.WriteString(fmt.Sprintf("Profit paid: %.2f\n", s.TotalProfitPaid))
	b.WriteString(fmt.Sprintf("Reinvested: %.2f\n", s.TotalReinvested))
	if len(s.FailedSignalNames) > 0 {
		b.WriteString("Burned: " + strings.Join(s.FailedSignalNames, ", "))
	}
	return b.String()
}
