package insight

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fintrackhq/fintrack-bff-go/internal/domain"
)

// recentLimit bounds how many transactions are serialized into the prompt.
const recentLimit = 5

// BuildInsightPrompt produces the prompt for transaction insights.
// With no transactions it asks for generic financial tips; otherwise it
// serializes a derived summary rather than the raw record list, keeping the
// prompt small and free of identifiers.
func BuildInsightPrompt(transactions []domain.Transaction, max int) string {
	if len(transactions) == 0 {
		return fmt.Sprintf("Provide %d general financial tips for better money management. "+
			"Focus on practical, actionable advice that can help someone improve their financial health. "+
			"Format the response in clear bullet points.", max)
	}

	return fmt.Sprintf("As a financial advisor, analyze these transaction details and provide %d specific, "+
		"actionable insights about spending patterns, savings opportunities, and financial advice. "+
		"Focus on practical advice:\n\n%s\nFormat the response in clear bullet points.",
		max, summarize(transactions))
}

// BuildChatPrompt produces the prompt for free-form financial Q&A.
func BuildChatPrompt(message string) string {
	return fmt.Sprintf("You are a helpful financial assistant. Please provide a concise and helpful "+
		"response to this question about personal finance: %q", message)
}

// BuildCategoryPrompt produces the prompt for a category recommendation.
func BuildCategoryPrompt(description string) string {
	return fmt.Sprintf("Based on this transaction description, suggest the most appropriate category "+
		"for budgeting purposes. Only return the category name, nothing else: %q", description)
}

// summarize renders totals, the category set and the most recent
// transactions as prompt text.
func summarize(transactions []domain.Transaction) string {
	income := decimal.Zero
	expenses := decimal.Zero
	categorySet := make(map[string]struct{})
	for _, tx := range transactions {
		switch tx.Kind {
		case domain.KindIncome:
			income = income.Add(decimal.NewFromFloat(tx.Amount))
		case domain.KindExpense:
			expenses = expenses.Add(decimal.NewFromFloat(tx.Amount))
		}
		if tx.Category != "" {
			categorySet[tx.Category] = struct{}{}
		}
	}

	categories := make([]string, 0, len(categorySet))
	for c := range categorySet {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	// Store order is unspecified, so pick the newest entries explicitly.
	recent := make([]domain.Transaction, len(transactions))
	copy(recent, transactions)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Total Income: $%s\n", income.Round(2).String())
	fmt.Fprintf(&b, "Total Expenses: $%s\n", expenses.Round(2).String())
	fmt.Fprintf(&b, "Categories: %s\n\n", strings.Join(categories, ", "))
	b.WriteString("Recent Transactions:\n")
	for _, tx := range recent {
		category := tx.Category
		if category == "" {
			category = "uncategorized"
		}
		fmt.Fprintf(&b, "- %s: $%.2f for %s (%s)\n", tx.Kind, tx.Amount, tx.Description, category)
	}
	return b.String()
}
