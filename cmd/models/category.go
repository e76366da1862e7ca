package models

import "strings"

// Category is the fixed set of article categories. Posts reference values of
// this type through PostCategory; free-text input must go through
// ParseCategory first.
type Category string

const (
	CategoryPolitics      Category = "Politics"
	CategoryTech          Category = "Tech"
	CategoryHealth        Category = "Health"
	CategorySports        Category = "Sports"
	CategoryEntertainment Category = "Entertainment"
	CategoryScience       Category = "Science"
	CategoryBusiness      Category = "Business"
	CategoryEnvironment   Category = "Environment"
)

// MaxPostCategories caps how many categories a single post may carry.
const MaxPostCategories = 5

var allCategories = []Category{
	CategoryPolitics,
	CategoryTech,
	CategoryHealth,
	CategorySports,
	CategoryEntertainment,
	CategoryScience,
	CategoryBusiness,
	CategoryEnvironment,
}

// AllCategories returns the enumeration in declaration order.
func AllCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// ParseCategory matches free-text input against the enumeration. Matching is
// case-insensitive and tolerates spaces where the canonical name has none.
// The second return value reports whether the name was recognized.
func ParseCategory(name string) (Category, bool) {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", ""))
	for _, c := range allCategories {
		if strings.ToLower(string(c)) == normalized {
			return c, true
		}
	}
	return "", false
}
