package intent

import "strings"

// Category is a canonical expense category.
type Category string

const (
	CategoryFood          Category = "Food & Dining"
	CategoryTransport     Category = "Transportation"
	CategoryShopping      Category = "Shopping"
	CategoryBills         Category = "Bills & Utilities"
	CategoryEntertainment Category = "Entertainment"
	CategoryHealth        Category = "Health & Fitness"
	CategoryEducation     Category = "Education"
	CategoryTravel        Category = "Travel"
	CategoryOther         Category = "Other"
)

// Categories lists every canonical category.
var Categories = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryShopping,
	CategoryBills,
	CategoryEntertainment,
	CategoryHealth,
	CategoryEducation,
	CategoryTravel,
	CategoryOther,
}

// categoryKeywords is scanned in order; the first keyword contained in the
// input wins.
var categoryKeywords = []struct {
	keyword  string
	category Category
}{
	{"food", CategoryFood},
	{"dining", CategoryFood},
	{"restaurant", CategoryFood},
	{"transport", CategoryTransport},
	{"transportation", CategoryTransport},
	{"uber", CategoryTransport},
	{"taxi", CategoryTransport},
	{"shop", CategoryShopping},
	{"shopping", CategoryShopping},
	{"bill", CategoryBills},
	{"bills", CategoryBills},
	{"utility", CategoryBills},
	{"utilities", CategoryBills},
	{"entertainment", CategoryEntertainment},
	{"movie", CategoryEntertainment},
	{"health", CategoryHealth},
	{"fitness", CategoryHealth},
	{"gym", CategoryHealth},
	{"education", CategoryEducation},
	{"school", CategoryEducation},
	{"travel", CategoryTravel},
}

// NormalizeCategory maps free text to a canonical category. It is total and
// idempotent over its own outputs.
func NormalizeCategory(s string) Category {
	lower := strings.ToLower(s)
	for _, kw := range categoryKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.category
		}
	}
	return CategoryOther
}
