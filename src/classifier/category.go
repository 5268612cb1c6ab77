package classifier

import (
	"strings"

	"finanzas-server/src/models"
)

const (
	CategoryFood           = "food"
	CategoryTransportation = "transportation"
	CategoryUtilities      = "utilities"
	CategoryHealth         = "health"
	CategoryEntertainment  = "entertainment"
	CategoryShopping       = "shopping"
	CategoryRent           = "rent"
	CategoryTaxes          = "taxes"
	CategorySubscription   = "subscription"
	CategoryOther          = "other"
)

type categoryKeywords struct {
	category string
	keywords []string
}

// categoryTable is scanned top to bottom; the first category with a keyword
// contained in the description wins.
var categoryTable = []categoryKeywords{
	{CategoryFood, []string{"supermercado", "restaurant", "comida", "food", "grocery", "almuerzo", "cena", "cafe", "café", "delivery", "pizza"}},
	{CategoryTransportation, []string{"uber", "taxi", "colectivo", "subte", "nafta", "combustible", "gasolina", "fuel", "transport", "peaje", "parking", "estacionamiento"}},
	{CategoryUtilities, []string{"luz", "agua", "gas", "internet", "electricidad", "electricity", "utility", "teléfono", "telefono"}},
	{CategoryHealth, []string{"farmacia", "pharmacy", "médico", "medico", "doctor", "hospital", "salud", "health", "dentista", "clínica", "clinica"}},
	{CategoryEntertainment, []string{"cine", "movie", "teatro", "concierto", "concert", "juego", "game", "entertainment"}},
	{CategoryShopping, []string{"compra", "shopping", "ropa", "tienda", "store", "mercadolibre", "amazon"}},
	{CategoryRent, []string{"alquiler", "rent", "expensas"}},
	{CategoryTaxes, []string{"impuesto", "tax", "afip", "monotributo"}},
	{CategorySubscription, []string{"netflix", "spotify", "suscripción", "suscripcion", "subscription", "disney"}},
}

// DetectCategory suggests a category from free text. The suggestion is
// advisory; callers may ignore it.
func DetectCategory(description string) (string, bool) {
	d := strings.ToLower(description)
	for _, c := range categoryTable {
		if containsAny(d, c.keywords) {
			return c.category, true
		}
	}
	return "", false
}

var categoriesByType = map[models.TransactionType][]string{
	models.TypeExpense: {
		CategoryFood, CategoryTransportation, CategoryUtilities, CategoryHealth, CategoryEntertainment,
		CategoryShopping, CategoryRent, CategoryTaxes, CategorySubscription, CategoryOther,
	},
	models.TypeIncome:              {"salary", "freelance", "bonus", "investment", "gift", "refund", CategoryOther},
	models.TypeTransferOwnAccounts: {"internal_transfer", CategoryOther},
	models.TypeTransferThirdParty:  {"payment", "loan", "gift", "family", CategoryOther},
	models.TypeDeposit:             {"cash_deposit", CategoryOther},
	models.TypeWithdrawal:          {"atm", "cash_withdrawal", CategoryOther},
	models.TypeSaving:              {"savings_goal", "emergency_fund", CategoryOther},
}

// CategoriesFor returns the category vocabulary offered for a transaction type.
func CategoriesFor(t models.TransactionType) []string {
	return categoriesByType[t]
}
