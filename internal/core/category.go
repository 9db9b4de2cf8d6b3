package core

// CategoryKind tells which transaction type a category belongs to.
type CategoryKind string

const (
	KindIncome  CategoryKind = "income"
	KindExpense CategoryKind = "expense"
	KindAny     CategoryKind = "any"
)

// OtherCategory is returned for every id the registry does not know.
const OtherCategory = "other"

const fallbackLanguage = "en"

// CategoryInfo is the display metadata of a category.
type CategoryInfo struct {
	ID    string            `json:"id"`
	Kind  CategoryKind      `json:"kind"`
	Names map[string]string `json:"names"`
	Icon  string            `json:"icon"`
	Color string            `json:"color"`
}

// Name returns the label for lang, falling back to English.
func (c CategoryInfo) Name(lang string) string {
	if n, ok := c.Names[lang]; ok {
		return n
	}
	return c.Names[fallbackLanguage]
}

var categoryOrder = []string{
	"salary", "freelance", "investment", "gift",
	"food", "rent", "utilities", "transport", "shopping",
	"entertainment", "health", "education", "travel", "subscriptions",
	OtherCategory,
}

var categories = map[string]CategoryInfo{
	"salary":        {ID: "salary", Kind: KindIncome, Icon: "briefcase", Color: "#10B981", Names: names("Salary", "Salario", "Salário")},
	"freelance":     {ID: "freelance", Kind: KindIncome, Icon: "laptop", Color: "#14B8A6", Names: names("Freelance", "Freelance", "Freelance")},
	"investment":    {ID: "investment", Kind: KindIncome, Icon: "trending-up", Color: "#6366F1", Names: names("Investment", "Inversión", "Investimento")},
	"gift":          {ID: "gift", Kind: KindIncome, Icon: "gift", Color: "#EC4899", Names: names("Gift", "Regalo", "Presente")},
	"food":          {ID: "food", Kind: KindExpense, Icon: "utensils", Color: "#F59E0B", Names: names("Food", "Comida", "Alimentação")},
	"rent":          {ID: "rent", Kind: KindExpense, Icon: "home", Color: "#EF4444", Names: names("Rent", "Alquiler", "Aluguel")},
	"utilities":     {ID: "utilities", Kind: KindExpense, Icon: "zap", Color: "#F97316", Names: names("Utilities", "Servicios", "Contas")},
	"transport":     {ID: "transport", Kind: KindExpense, Icon: "car", Color: "#3B82F6", Names: names("Transport", "Transporte", "Transporte")},
	"shopping":      {ID: "shopping", Kind: KindExpense, Icon: "shopping-bag", Color: "#8B5CF6", Names: names("Shopping", "Compras", "Compras")},
	"entertainment": {ID: "entertainment", Kind: KindExpense, Icon: "film", Color: "#D946EF", Names: names("Entertainment", "Entretenimiento", "Lazer")},
	"health":        {ID: "health", Kind: KindExpense, Icon: "heart", Color: "#F43F5E", Names: names("Health", "Salud", "Saúde")},
	"education":     {ID: "education", Kind: KindExpense, Icon: "book", Color: "#0EA5E9", Names: names("Education", "Educación", "Educação")},
	"travel":        {ID: "travel", Kind: KindExpense, Icon: "plane", Color: "#06B6D4", Names: names("Travel", "Viajes", "Viagens")},
	"subscriptions": {ID: "subscriptions", Kind: KindExpense, Icon: "repeat", Color: "#A855F7", Names: names("Subscriptions", "Suscripciones", "Assinaturas")},
	OtherCategory:   {ID: OtherCategory, Kind: KindAny, Icon: "more-horizontal", Color: "#6B7280", Names: names("Other", "Otros", "Outros")},
}

func names(en, es, pt string) map[string]string {
	return map[string]string{"en": en, "es": es, "pt": pt}
}

// LookupCategory returns the metadata for id, or the "other" entry.
func LookupCategory(id string) CategoryInfo {
	if c, ok := categories[id]; ok {
		return c
	}
	return categories[OtherCategory]
}

// IsKnownCategory reports whether id is in the registry.
func IsKnownCategory(id string) bool {
	_, ok := categories[id]
	return ok
}

// Categories lists the categories usable for kind in display order.
// KindAny entries are included for every kind.
func Categories(kind CategoryKind) []CategoryInfo {
	out := make([]CategoryInfo, 0, len(categoryOrder))
	for _, id := range categoryOrder {
		c := categories[id]
		if kind == KindAny || c.Kind == kind || c.Kind == KindAny {
			out = append(out, c)
		}
	}
	return out
}
