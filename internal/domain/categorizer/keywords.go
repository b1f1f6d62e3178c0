package categorizer

// keywordRule maps a spending category to the description keywords that
// indicate it. Rules are ordered; earlier rules win keyword-count ties.
type keywordRule struct {
	Category string
	Keywords []string
}

// keywordRules is read-only after initialization. Keywords are matched
// as lowercase substrings of the description plus vendor.
var keywordRules = []keywordRule{
	{Category: "Fuel", Keywords: []string{"fuel", "petrol", "diesel", "engen", "caltex", "garage"}},
	{Category: "Rent", Keywords: []string{"rent", "lease", "rental"}},
	{Category: "Office Supplies", Keywords: []string{"office", "stationery", "takealot", "waltons", "paper"}},
	{Category: "Telephone & Internet", Keywords: []string{"vodacom", "mtn", "telkom", "airtime", "data", "fibre"}},
	{Category: "Utilities", Keywords: []string{"electricity", "water", "municipal", "eskom", "prepaid"}},
	{Category: "Bank Charges", Keywords: []string{"bank fee", "service fee", "account fee", "card fee"}},
	{Category: "Insurance", Keywords: []string{"insurance", "assurance", "premium", "santam", "outsurance"}},
	{Category: "Salaries & Wages", Keywords: []string{"salary", "wages", "payroll"}},
	{Category: "Travel", Keywords: []string{"flight", "airline", "uber", "bolt", "hotel", "lodge", "travel"}},
	{Category: "Meals & Entertainment", Keywords: []string{"restaurant", "catering", "coffee", "lunch"}},
	{Category: "Accounting & Legal", Keywords: []string{"accounting", "audit", "attorney", "sars", "efiling"}},
	{Category: "Software & Subscriptions", Keywords: []string{"software", "subscription", "saas", "hosting", "domain"}},
}

// Default categories when every strategy fails, by amount sign.
const (
	categoryOther       = "Other"
	categoryOtherIncome = "Other Income"
)

// defaultAlternatives are the low-confidence suggestions attached to
// the safety-net result, chosen by amount sign only.
var (
	defaultDebitAlternatives = []Alternative{
		{Category: "Office Supplies", Confidence: 0.2},
		{Category: "Bank Charges", Confidence: 0.2},
		{Category: "Meals & Entertainment", Confidence: 0.15},
	}
	defaultCreditAlternatives = []Alternative{
		{Category: "Sales", Confidence: 0.2},
		{Category: "Interest Income", Confidence: 0.15},
	}
)
