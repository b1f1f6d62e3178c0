// Package categorizer assigns a spending category to debit transactions
// that the matcher could not place against an expense record.
//
// Strategies run in strict order, short-circuiting on first success:
//
//  1. Exact vendor match against historical expenses (confidence 0.95)
//  2. Fuzzy vendor match via Levenshtein similarity (> 0.8)
//  3. Keyword pattern match against a fixed category table
//  4. Word-overlap learning from historical expense descriptions
//
// When all four fail, an optional external hint provider is consulted
// with a short timeout, and finally a low-confidence default is
// returned. The chain is fully deterministic with the hint provider
// absent.
package categorizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/clearledger/reconcile-backend/internal/domain/ledger"
	"github.com/clearledger/reconcile-backend/internal/domain/similarity"
)

// Resolver runs the categorization fallback chain.
type Resolver struct {
	history History
	hints   HintProvider // may be nil
	cache   *MemoryCache
	config  Config
	logger  *slog.Logger
}

// NewResolver creates a new resolver. hints may be nil, in which case
// the external signal is skipped entirely.
func NewResolver(history History, hints HintProvider, cache *MemoryCache, config Config, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Resolver{
		history: history,
		hints:   hints,
		cache:   cache,
		config:  config,
		logger:  logger,
	}
}

// Resolve assigns a category to the given transaction. It never returns
// an error: history failures degrade to the next strategy, and the
// default safety net always applies.
func (r *Resolver) Resolve(ctx context.Context, tx ledger.Transaction) Result {
	vendor := vendorKey(tx)

	if res, ok := r.exactVendor(vendor); ok {
		return res
	}
	if res, ok := r.fuzzyVendor(vendor); ok {
		return res
	}
	if res, ok := r.keywordMatch(tx); ok {
		return res
	}
	if res, ok := r.wordOverlap(tx); ok {
		return res
	}
	if res, ok := r.externalHint(ctx, tx); ok {
		return res
	}

	return r.defaultResult(tx)
}

// exactVendor looks the vendor up in the cache and then against
// historical expenses with an identical vendor name.
func (r *Resolver) exactVendor(vendor string) (Result, bool) {
	if vendor == "" {
		return Result{}, false
	}

	if category, found := r.cache.Get(vendor); found {
		return Result{
			Category:   category,
			Confidence: 0.95,
			Reasons:    []string{"previously categorized vendor"},
		}, true
	}

	expenses, err := r.history.ExpensesByVendor(vendor)
	if err != nil {
		r.logger.Warn("vendor history lookup failed", "vendor", vendor, "error", err)
		return Result{}, false
	}
	if len(expenses) == 0 {
		return Result{}, false
	}

	category := expenses[0].Category
	r.cache.Set(vendor, category)

	return Result{
		Category:   category,
		Confidence: 0.95,
		Reasons:    []string{fmt.Sprintf("exact vendor match on %q", expenses[0].Vendor)},
	}, true
}

// fuzzyVendor compares the vendor against every vendor seen in recent
// history using Levenshtein similarity, accepting the best match only
// above the configured threshold. Confidence is the similarity itself.
func (r *Resolver) fuzzyVendor(vendor string) (Result, bool) {
	if vendor == "" {
		return Result{}, false
	}

	expenses, err := r.history.RecentExpenses(r.config.FuzzyHistoryLimit)
	if err != nil {
		r.logger.Warn("recent expense lookup failed", "error", err)
		return Result{}, false
	}

	var bestSim float64
	var bestExpense *ledger.Expense
	for i := range expenses {
		sim := similarity.Vendor(vendor, expenses[i].Vendor)
		if sim > bestSim {
			bestSim = sim
			bestExpense = &expenses[i]
		}
	}

	if bestExpense == nil || bestSim <= r.config.FuzzyThreshold {
		return Result{}, false
	}

	r.cache.Set(vendor, bestExpense.Category)

	return Result{
		Category:   bestExpense.Category,
		Confidence: bestSim,
		Reasons:    []string{fmt.Sprintf("similar vendor %q in history", bestExpense.Vendor)},
	}, true
}

// keywordMatch tests the description plus vendor against the fixed
// keyword table. The category with the most matched keywords wins;
// ties go to the first-registered rule.
func (r *Resolver) keywordMatch(tx ledger.Transaction) (Result, bool) {
	haystack := strings.ToLower(tx.Description + " " + tx.Merchant)

	type scored struct {
		category string
		count    int
	}
	var ranked []scored
	for _, rule := range keywordRules {
		count := 0
		for _, kw := range rule.Keywords {
			if strings.Contains(haystack, kw) {
				count++
			}
		}
		if count > 0 {
			ranked = append(ranked, scored{category: rule.Category, count: count})
		}
	}

	if len(ranked) == 0 {
		return Result{}, false
	}

	best := ranked[0]
	for _, s := range ranked[1:] {
		if s.count > best.count {
			best = s
		}
	}

	var alternatives []Alternative
	for _, s := range ranked {
		if s.category == best.category {
			continue
		}
		alternatives = append(alternatives, Alternative{
			Category:   s.category,
			Confidence: keywordConfidence(s.count),
		})
	}

	return Result{
		Category:     best.category,
		Confidence:   keywordConfidence(best.count),
		Reasons:      []string{fmt.Sprintf("%d keyword(s) matched for %s", best.count, best.category)},
		Alternatives: alternatives,
	}, true
}

func keywordConfidence(matchCount int) float64 {
	conf := 0.7 + 0.1*float64(matchCount)
	if conf > 0.95 {
		conf = 0.95
	}
	return conf
}

// wordOverlap tokenizes the description and accumulates a per-category
// score from overlapping words against recent expense descriptions.
// Only tokens longer than three characters count.
func (r *Resolver) wordOverlap(tx ledger.Transaction) (Result, bool) {
	tokens := tokenize(tx.Description)
	if len(tokens) == 0 {
		return Result{}, false
	}

	expenses, err := r.history.RecentExpenses(r.config.LearningHistoryLimit)
	if err != nil {
		r.logger.Warn("recent expense lookup failed", "error", err)
		return Result{}, false
	}

	scores := make(map[string]int)
	for _, exp := range expenses {
		text := exp.Description
		if text == "" {
			text = exp.Vendor
		}
		overlap := 0
		for token := range tokenize(text) {
			if tokens[token] {
				overlap++
			}
		}
		if overlap > 0 && exp.Category != "" {
			scores[exp.Category] += overlap
		}
	}

	bestCategory := ""
	bestScore := 0
	for category, score := range scores {
		if score > bestScore {
			bestCategory = category
			bestScore = score
		}
	}

	if bestScore <= r.config.LearningMinScore {
		return Result{}, false
	}

	conf := 0.6 + 0.05*float64(bestScore)
	if conf > 0.85 {
		conf = 0.85
	}

	return Result{
		Category:   bestCategory,
		Confidence: conf,
		Reasons:    []string{fmt.Sprintf("description overlaps %d word(s) with past %s expenses", bestScore, bestCategory)},
	}, true
}

// externalHint asks the optional hint provider, bounded by a short
// timeout. Failures and timeouts are recoverable and fall through to
// the default; hints are never trusted above the configured cap.
func (r *Resolver) externalHint(ctx context.Context, tx ledger.Transaction) (Result, bool) {
	if r.hints == nil {
		return Result{}, false
	}

	hintCtx, cancel := context.WithTimeout(ctx, r.config.HintTimeout)
	defer cancel()

	hint, err := r.hints.SuggestCategory(hintCtx, tx.Description, tx.Amount, r.config.Industry)
	if err != nil {
		r.logger.Warn("category hint provider failed", "transaction_id", tx.ID, "error", err)
		return Result{}, false
	}
	if hint == nil || hint.Category == "" {
		return Result{}, false
	}

	conf := hint.Confidence
	if conf > r.config.HintConfidenceCap {
		conf = r.config.HintConfidenceCap
	}

	reasons := []string{"external category hint"}
	if hint.Reasoning != "" {
		reasons = append(reasons, hint.Reasoning)
	}

	return Result{
		Category:   hint.Category,
		Confidence: conf,
		Reasons:    reasons,
	}, true
}

// defaultResult is the safety net when every strategy fails.
func (r *Resolver) defaultResult(tx ledger.Transaction) Result {
	category := categoryOther
	alternatives := defaultDebitAlternatives
	if tx.Amount.IsPositive() {
		category = categoryOtherIncome
		alternatives = defaultCreditAlternatives
	}

	return Result{
		Category:     category,
		Confidence:   0.3,
		Reasons:      []string{"no historical or keyword signal"},
		Alternatives: alternatives,
	}
}

// vendorKey normalizes the lookup key for the vendor-based strategies.
// Falls back to the description when the bank feed carries no merchant.
func vendorKey(tx ledger.Transaction) string {
	vendor := strings.ToLower(strings.TrimSpace(tx.Merchant))
	if vendor == "" {
		vendor = strings.ToLower(strings.TrimSpace(tx.Description))
	}
	return vendor
}

func tokenize(s string) map[string]bool {
	out := make(map[string]bool)
	for _, word := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		if len(word) > 3 {
			out[word] = true
		}
	}
	return out
}
