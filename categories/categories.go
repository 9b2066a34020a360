package categories

import "strings"

// Category is the shared metadata for a post category. Every page that
// renders category chips or pickers reads from the same table, so the
// icon/label pairs cannot drift between views.
type Category struct {
	Key   string `json:"key"`
	Icon  string `json:"icon"`
	Label string `json:"label"`
}

// Keys preserves the display order used by the submission forms.
var Keys = []string{
	"credit card",
	"bank / investment",
	"mobile / internet",
	"shopping / cashback",
	"subscriptions",
	"travel & transport",
	"health & fitness",
	"education",
	"apps & tools",
	"others",
}

var Table = map[string]Category{
	"credit card":        {Key: "credit card", Icon: "💳", Label: "Credit Card"},
	"bank / investment":  {Key: "bank / investment", Icon: "🏦", Label: "Bank / Investment"},
	"mobile / internet":  {Key: "mobile / internet", Icon: "📶", Label: "Mobile / Internet"},
	"shopping / cashback": {Key: "shopping / cashback", Icon: "🛒", Label: "Shopping / Cashback"},
	"subscriptions":      {Key: "subscriptions", Icon: "📦", Label: "Subscriptions"},
	"travel & transport": {Key: "travel & transport", Icon: "✈️", Label: "Travel & Transport"},
	"health & fitness":   {Key: "health & fitness", Icon: "🧘", Label: "Health & Fitness"},
	"education":          {Key: "education", Icon: "🎓", Label: "Education"},
	"apps & tools":       {Key: "apps & tools", Icon: "🧰", Label: "Apps & Tools"},
	"others":             {Key: "others", Icon: "🌀", Label: "Others"},
}

// Valid reports whether key names a known category. Matching is
// case-insensitive, the stored key is always lowercase.
func Valid(key string) bool {
	_, ok := Table[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// Normalize returns the canonical lowercase key, or "" when unknown.
func Normalize(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	if _, ok := Table[k]; !ok {
		return ""
	}
	return k
}

// All returns the categories in display order.
func All() []Category {
	out := make([]Category, 0, len(Keys))
	for _, k := range Keys {
		out = append(out, Table[k])
	}
	return out
}
