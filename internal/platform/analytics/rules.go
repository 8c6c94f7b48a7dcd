package analytics

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/labdesk/labdesk/internal/platform/money"
	"github.com/labdesk/labdesk/pkg/labmodels"
)

var hundred = decimal.NewFromInt(100)

// AgingLabels names the outstanding buckets in order.
var AgingLabels = []string{"0-30", "31-60", "61-90", "90+"}

// AgingBucketIndex places a bill that is days old into its bucket. Bills dated
// in the future count as current.
func AgingBucketIndex(days int) int {
	switch {
	case days <= 30:
		return 0
	case days <= 60:
		return 1
	case days <= 90:
		return 2
	}
	return 3
}

// GrowthRate is the percentage change from prev to cur. A rise from zero is
// 100 and zero to zero is 0.
func GrowthRate(cur, prev decimal.Decimal) decimal.Decimal {
	if prev.IsZero() {
		if cur.IsPositive() {
			return hundred
		}
		return decimal.Zero
	}
	return money.Round2(cur.Sub(prev).Div(prev).Mul(hundred))
}

func growthInt(cur, prev int) decimal.Decimal {
	return GrowthRate(decimal.NewFromInt(int64(cur)), decimal.NewFromInt(int64(prev)))
}

func percentInt(part, whole int) decimal.Decimal {
	return money.Percent(decimal.NewFromInt(int64(part)), decimal.NewFromInt(int64(whole)))
}

func summarizeRevenue(r Range, groups []StatusTotals) *RevenueSummary {
	s := &RevenueSummary{
		Range:          r,
		TotalBilled:    decimal.Zero,
		TotalCollected: decimal.Zero,
		ByStatus:       []StatusBreakdown{},
	}
	for _, g := range groups {
		s.TotalBilled = s.TotalBilled.Add(g.Billed)
		s.TotalCollected = s.TotalCollected.Add(g.Collected)
		s.BillCount += g.Count
		s.ByStatus = append(s.ByStatus, StatusBreakdown{Status: g.Status, Count: g.Count, Amount: g.Billed})
	}
	s.Outstanding = s.TotalBilled.Sub(s.TotalCollected)
	s.CollectionRate = money.Percent(s.TotalCollected, s.TotalBilled)
	return s
}

func summarizeTests(r Range, counts []TestCount, dist FlagDistribution, top int) *TestStatistics {
	sorted := make([]TestCount, len(counts))
	copy(sorted, counts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Count != sorted[j].Count {
			return sorted[i].Count > sorted[j].Count
		}
		return sorted[i].Name < sorted[j].Name
	})
	if top > 0 && len(sorted) > top {
		sorted = sorted[:top]
	}
	total := dist.Total()
	return &TestStatistics{
		Range:           r,
		TotalTests:      total,
		TopTests:        sorted,
		Distribution:    dist,
		AbnormalityRate: percentInt(dist.Abnormal, total),
	}
}

func summarizePatients(r Range, newPatients int, active []PatientActivity) *PatientStatistics {
	s := &PatientStatistics{Range: r, NewPatients: newPatients, ActivePatients: len(active)}
	genders := map[string]int{}
	for _, a := range active {
		if a.Reports > 1 {
			s.RepeatPatients++
		}
		g := a.Gender
		if g == "" {
			g = "Unknown"
		}
		genders[g]++
	}
	s.RepeatRate = percentInt(s.RepeatPatients, s.ActivePatients)

	s.Genders = make([]GenderCount, 0, len(genders))
	for g, n := range genders {
		s.Genders = append(s.Genders, GenderCount{Gender: g, Count: n})
	}
	sort.Slice(s.Genders, func(i, j int) bool {
		if s.Genders[i].Count != s.Genders[j].Count {
			return s.Genders[i].Count > s.Genders[j].Count
		}
		return s.Genders[i].Gender < s.Genders[j].Gender
	})
	return s
}

// summarizeAging buckets bills by age against today and ranks the patients
// who owe the most.
func summarizeAging(today labmodels.Date, bills []OutstandingBill, topN int) *OutstandingAging {
	a := &OutstandingAging{AsOf: today, Total: decimal.Zero}
	a.Buckets = make([]AgingBucket, len(AgingLabels))
	for i, l := range AgingLabels {
		a.Buckets[i] = AgingBucket{Label: l, Amount: decimal.Zero}
	}

	byPatient := map[uuid.UUID]*OutstandingPatient{}
	for _, b := range bills {
		due := b.Due()
		idx := AgingBucketIndex(b.BillDate.DaysSince(today))
		a.Buckets[idx].Count++
		a.Buckets[idx].Amount = a.Buckets[idx].Amount.Add(due)
		a.Total = a.Total.Add(due)

		p, ok := byPatient[b.PatientID]
		if !ok {
			p = &OutstandingPatient{PatientID: b.PatientID, Name: b.PatientName, Phone: b.Phone, Amount: decimal.Zero}
			byPatient[b.PatientID] = p
		}
		p.Amount = p.Amount.Add(due)
		p.Bills++
	}

	a.TopPatients = make([]OutstandingPatient, 0, len(byPatient))
	for _, p := range byPatient {
		a.TopPatients = append(a.TopPatients, *p)
	}
	sort.Slice(a.TopPatients, func(i, j int) bool {
		if c := a.TopPatients[i].Amount.Cmp(a.TopPatients[j].Amount); c != 0 {
			return c > 0
		}
		return a.TopPatients[i].Name < a.TopPatients[j].Name
	})
	if len(a.TopPatients) > topN {
		a.TopPatients = a.TopPatients[:topN]
	}
	return a
}

func comparePeriods(cur, prev PeriodMetrics) *Performance {
	return &Performance{
		CurrentMonth:  cur,
		PreviousMonth: prev,
		Growth: Growth{
			Bills:    growthInt(cur.Bills, prev.Bills),
			Reports:  growthInt(cur.Reports, prev.Reports),
			Patients: growthInt(cur.Patients, prev.Patients),
			Revenue:  GrowthRate(cur.Revenue, prev.Revenue),
		},
	}
}
