/*
methods.go - Spend-method vocabulary per account category

The vocabulary differs by category: airline and hotel programs only
redeem, credit-card programs also transfer to partners and cash out.
Represented as a lookup table keyed by the category tag rather than
per-category types.
*/
package ledger

// Spend method labels. The transfer label is load-bearing: CreateSpend
// branches into the Transfer Coordinator when it sees it.
const (
	MethodTransferToPartner = "Transfer to Partner"
	MethodSpentOnPortal     = "Spent on Portal"
	MethodCashOut           = "Cash Out"
	MethodRedeemedForFlight = "Redeemed for Flight"
	MethodRedeemedForHotel  = "Redeemed for Hotel"
)

var spendMethodsByCategory = map[Category][]string{
	CategoryAirline: {MethodRedeemedForFlight},
	CategoryHotel:   {MethodRedeemedForHotel},
	CategoryCreditCard: {
		MethodTransferToPartner,
		MethodSpentOnPortal,
		MethodCashOut,
	},
}

// SpendMethods returns the allowed spend-method labels for a category.
// Unknown categories fall back to the credit-card vocabulary.
func SpendMethods(c Category) []string {
	if methods, ok := spendMethodsByCategory[c]; ok {
		return methods
	}
	return spendMethodsByCategory[CategoryCreditCard]
}

// AllowedSpendMethod reports whether method is valid for the category.
func AllowedSpendMethod(c Category, method string) bool {
	for _, m := range SpendMethods(c) {
		if m == method {
			return true
		}
	}
	return false
}
