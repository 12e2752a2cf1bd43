// Package report computes aggregate reports from transaction lists.
// Reports are derived, ephemeral view-models: they are recomputed on every
// fetch and never persisted. Accumulation runs at full decimal precision;
// values are rounded to 2 decimal places only at the output boundary.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fintrackhq/fintrack-bff-go/internal/domain"
)

// Engine aggregates transactions into summary and time-series reports.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates an aggregation engine.
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{logger: logger}
}

// Summary computes balance, total income and total expenses in a single
// linear pass. Transactions with an unknown kind are ignored and logged;
// they never corrupt the totals.
func (e *Engine) Summary(transactions []domain.Transaction) *domain.SummaryReport {
	income := decimal.Zero
	expenses := decimal.Zero
	count := 0

	for _, tx := range transactions {
		amount := decimal.NewFromFloat(tx.Amount)
		switch tx.Kind {
		case domain.KindIncome:
			income = income.Add(amount)
			count++
		case domain.KindExpense:
			expenses = expenses.Add(amount)
			count++
		default:
			e.logger.Warn("skipping transaction with unknown kind",
				zap.String("transaction_id", tx.ID),
				zap.String("kind", tx.Kind),
			)
		}
	}

	return &domain.SummaryReport{
		Balance:       round2(income.Sub(expenses)),
		TotalIncome:   round2(income),
		TotalExpenses: round2(expenses),
		Count:         count,
	}
}

// DailySeries buckets the given month's transactions by day of month.
// Every calendar day of the month gets a bucket (leap years included),
// zero-filled when no transactions fall on it, in ascending day order.
// Each bucket's balance is that day's income minus expenses, not cumulative.
func (e *Engine) DailySeries(transactions []domain.Transaction, year int, month time.Month) *domain.SeriesReport {
	days := daysInMonth(year, month)

	income := make([]decimal.Decimal, days+1)
	expenses := make([]decimal.Decimal, days+1)

	for _, tx := range transactions {
		if tx.CreatedAt.Year() != year || tx.CreatedAt.Month() != month {
			continue
		}
		day := tx.CreatedAt.Day()
		amount := decimal.NewFromFloat(tx.Amount)
		switch tx.Kind {
		case domain.KindIncome:
			income[day] = income[day].Add(amount)
		case domain.KindExpense:
			expenses[day] = expenses[day].Add(amount)
		default:
			e.logger.Warn("skipping transaction with unknown kind",
				zap.String("transaction_id", tx.ID),
				zap.String("kind", tx.Kind),
			)
		}
	}

	buckets := make([]domain.SeriesBucket, 0, days)
	totalIncome := decimal.Zero
	totalExpenses := decimal.Zero
	for day := 1; day <= days; day++ {
		totalIncome = totalIncome.Add(income[day])
		totalExpenses = totalExpenses.Add(expenses[day])
		buckets = append(buckets, domain.SeriesBucket{
			Period:   fmt.Sprintf("%02d", day),
			Income:   round2(income[day]),
			Expenses: round2(expenses[day]),
			Balance:  round2(income[day].Sub(expenses[day])),
		})
	}

	return &domain.SeriesReport{
		TimeFrame:        "month",
		Buckets:          buckets,
		AvgBucketIncome:  avgPerBucket(totalIncome, len(buckets)),
		AvgBucketExpense: avgPerBucket(totalExpenses, len(buckets)),
	}
}

// MonthlySeries buckets all transactions by calendar month and year.
// Buckets are sorted chronologically by actual month. The upstream web app
// emitted them in first-seen insertion order, which put a user's earliest
// label wherever it happened to appear; that was a bug and is deliberately
// corrected here.
func (e *Engine) MonthlySeries(transactions []domain.Transaction) *domain.SeriesReport {
	type bucket struct {
		income   decimal.Decimal
		expenses decimal.Decimal
	}
	byMonth := make(map[time.Time]*bucket)

	for _, tx := range transactions {
		key := time.Date(tx.CreatedAt.Year(), tx.CreatedAt.Month(), 1, 0, 0, 0, 0, time.UTC)
		b, ok := byMonth[key]
		if !ok {
			b = &bucket{income: decimal.Zero, expenses: decimal.Zero}
			byMonth[key] = b
		}
		amount := decimal.NewFromFloat(tx.Amount)
		switch tx.Kind {
		case domain.KindIncome:
			b.income = b.income.Add(amount)
		case domain.KindExpense:
			b.expenses = b.expenses.Add(amount)
		default:
			e.logger.Warn("skipping transaction with unknown kind",
				zap.String("transaction_id", tx.ID),
				zap.String("kind", tx.Kind),
			)
		}
	}

	months := make([]time.Time, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	buckets := make([]domain.SeriesBucket, 0, len(months))
	totalIncome := decimal.Zero
	totalExpenses := decimal.Zero
	for _, m := range months {
		b := byMonth[m]
		totalIncome = totalIncome.Add(b.income)
		totalExpenses = totalExpenses.Add(b.expenses)
		buckets = append(buckets, domain.SeriesBucket{
			Period:   m.Format("Jan 06"),
			Income:   round2(b.income),
			Expenses: round2(b.expenses),
			Balance:  round2(b.income.Sub(b.expenses)),
		})
	}

	return &domain.SeriesReport{
		TimeFrame:        "year",
		Buckets:          buckets,
		AvgBucketIncome:  avgPerBucket(totalIncome, len(buckets)),
		AvgBucketExpense: avgPerBucket(totalExpenses, len(buckets)),
	}
}

// daysInMonth returns the number of calendar days in the given month.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// avgPerBucket divides a total across buckets, guarding division by zero.
func avgPerBucket(total decimal.Decimal, bucketCount int) float64 {
	if bucketCount < 1 {
		bucketCount = 1
	}
	return round2(total.Div(decimal.NewFromInt(int64(bucketCount))))
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
