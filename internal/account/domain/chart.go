package domain

// ChartAccount is a template row for the default chart seeded into every
// new tenant.
type ChartAccount struct {
	Number  string
	Name    string
	Type    AccountType
	Subtype AccountSubtype
	System  bool
}

// DefaultChart returns the canonical starter chart of accounts. System
// accounts anchor automatic postings (AR, AP, tax, equity, revenue, COGS)
// and can never be deactivated or deleted.
func DefaultChart() []ChartAccount {
	return []ChartAccount{
		{Number: "1000", Name: "Cash", Type: AccountTypeAsset, Subtype: SubtypeCash},
		{Number: "1010", Name: "Checking Account", Type: AccountTypeAsset, Subtype: SubtypeBank},
		{Number: "1100", Name: "Accounts Receivable", Type: AccountTypeAsset, Subtype: SubtypeAccountsReceivable, System: true},
		{Number: "1200", Name: "Inventory", Type: AccountTypeAsset, Subtype: SubtypeInventory},
		{Number: "1500", Name: "Fixed Assets", Type: AccountTypeAsset, Subtype: SubtypeFixedAsset},
		{Number: "2000", Name: "Accounts Payable", Type: AccountTypeLiability, Subtype: SubtypeAccountsPayable, System: true},
		{Number: "2100", Name: "Sales Tax Payable", Type: AccountTypeLiability, Subtype: SubtypeSalesTaxPayable, System: true},
		{Number: "3000", Name: "Owner's Equity", Type: AccountTypeEquity, Subtype: SubtypeOwnersEquity, System: true},
		{Number: "3900", Name: "Retained Earnings", Type: AccountTypeEquity, Subtype: SubtypeRetainedEarnings, System: true},
		{Number: "4000", Name: "Sales Revenue", Type: AccountTypeIncome, Subtype: SubtypeSales, System: true},
		{Number: "5000", Name: "Cost of Goods Sold", Type: AccountTypeExpense, Subtype: SubtypeCostOfGoodsSold, System: true},
		{Number: "6000", Name: "Rent Expense", Type: AccountTypeExpense, Subtype: SubtypeOperatingExpense},
		{Number: "6100", Name: "Utilities Expense", Type: AccountTypeExpense, Subtype: SubtypeOperatingExpense},
		{Number: "6200", Name: "Office Supplies", Type: AccountTypeExpense, Subtype: SubtypeOperatingExpense},
		{Number: "6300", Name: "Payroll Expense", Type: AccountTypeExpense, Subtype: SubtypePayrollExpense},
		{Number: "6400", Name: "Insurance Expense", Type: AccountTypeExpense, Subtype: SubtypeOperatingExpense},
	}
}
