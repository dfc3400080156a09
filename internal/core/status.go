package core

// Category is the presentation bucket a status token maps to.
type Category string

const (
	CategoryDefault Category = "default"
	CategorySuccess Category = "success"
	CategoryInfo    Category = "info"
	CategoryWarning Category = "warning"
	CategoryDanger  Category = "danger"
	CategoryAccent  Category = "accent"
	CategoryNeutral Category = "neutral"
)

type classifierTable struct {
	tokens   map[string]Category
	fallback Category
}

// Matching is exact and case-sensitive: "Paid" is not "paid".
var classifiers = map[Kind]classifierTable{
	KindExpense: {
		tokens: map[string]Category{
			"paid":     CategorySuccess,
			"approved": CategoryInfo,
			"rejected": CategoryDanger,
		},
		fallback: CategoryWarning,
	},
	KindInvoice: {
		tokens: map[string]Category{
			"paid":      CategorySuccess,
			"partial":   CategoryWarning,
			"overdue":   CategoryDanger,
			"cancelled": CategoryNeutral,
		},
		fallback: CategoryInfo,
	},
	KindPurchaseOrder: {
		tokens: map[string]Category{
			"approved":  CategoryAccent,
			"received":  CategorySuccess,
			"cancelled": CategoryDanger,
		},
		fallback: CategoryWarning,
	},
	KindSaleReceipt: {
		tokens: map[string]Category{
			"mpesa": CategoryAccent,
			"cash":  CategorySuccess,
			"card":  CategoryInfo,
		},
		fallback: CategoryNeutral,
	},
}

// Classify maps a status (or, for sale receipts, payment method) token to a
// presentation category. It is total: unrecognized tokens get the kind's
// fallback and unknown kinds get CategoryDefault.
func Classify(kind Kind, token string) Category {
	table, ok := classifiers[kind]
	if !ok {
		return CategoryDefault
	}
	if c, ok := table.tokens[token]; ok {
		return c
	}
	return table.fallback
}

// ClassifierToken returns the field of r that drives its badge color.
func ClassifierToken(r Record) string {
	if r.Kind == KindSaleReceipt {
		return r.PaymentMethod
	}
	return r.Status
}

// ClassifyRecord is Classify applied to the record's own token.
func ClassifyRecord(r Record) Category {
	return Classify(r.Kind, ClassifierToken(r))
}
