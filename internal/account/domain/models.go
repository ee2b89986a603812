// Package domain contains chart-of-accounts types.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// AccountType is the top-level accounting classification.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeIncome    AccountType = "income"
	AccountTypeExpense   AccountType = "expense"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	default:
		return false
	}
}

// CreditNormal reports whether the account type grows on the credit side.
func (t AccountType) CreditNormal() bool {
	switch t {
	case AccountTypeLiability, AccountTypeEquity, AccountTypeIncome:
		return true
	default:
		return false
	}
}

// SignedBalance applies the normal-side sign convention to raw debit and
// credit totals: a liability with more credits than debits reads positive.
func SignedBalance(t AccountType, debit, credit decimal.Decimal) decimal.Decimal {
	balance := debit.Sub(credit)
	if t.CreditNormal() {
		return balance.Neg()
	}
	return balance
}

// AccountSubtype refines the account type.
type AccountSubtype string

const (
	SubtypeCash               AccountSubtype = "cash"
	SubtypeBank               AccountSubtype = "bank"
	SubtypeAccountsReceivable AccountSubtype = "accounts_receivable"
	SubtypeInventory          AccountSubtype = "inventory"
	SubtypeFixedAsset         AccountSubtype = "fixed_asset"
	SubtypeOtherCurrentAsset  AccountSubtype = "other_current_asset"

	SubtypeAccountsPayable       AccountSubtype = "accounts_payable"
	SubtypeSalesTaxPayable       AccountSubtype = "sales_tax_payable"
	SubtypeCreditCard            AccountSubtype = "credit_card"
	SubtypeOtherCurrentLiability AccountSubtype = "other_current_liability"

	SubtypeOwnersEquity     AccountSubtype = "owners_equity"
	SubtypeRetainedEarnings AccountSubtype = "retained_earnings"

	SubtypeSales       AccountSubtype = "sales"
	SubtypeOtherIncome AccountSubtype = "other_income"

	SubtypeCostOfGoodsSold  AccountSubtype = "cost_of_goods_sold"
	SubtypeOperatingExpense AccountSubtype = "operating_expense"
	SubtypePayrollExpense   AccountSubtype = "payroll_expense"
	SubtypeOtherExpense     AccountSubtype = "other_expense"
)

var subtypesByType = map[AccountType][]AccountSubtype{
	AccountTypeAsset: {
		SubtypeCash, SubtypeBank, SubtypeAccountsReceivable,
		SubtypeInventory, SubtypeFixedAsset, SubtypeOtherCurrentAsset,
	},
	AccountTypeLiability: {
		SubtypeAccountsPayable, SubtypeSalesTaxPayable,
		SubtypeCreditCard, SubtypeOtherCurrentLiability,
	},
	AccountTypeEquity: {
		SubtypeOwnersEquity, SubtypeRetainedEarnings,
	},
	AccountTypeIncome: {
		SubtypeSales, SubtypeOtherIncome,
	},
	AccountTypeExpense: {
		SubtypeCostOfGoodsSold, SubtypeOperatingExpense,
		SubtypePayrollExpense, SubtypeOtherExpense,
	},
}

// ValidSubtype reports whether the subtype belongs to the type. An empty
// subtype is always allowed.
func ValidSubtype(t AccountType, s AccountSubtype) bool {
	if s == "" {
		return true
	}
	for _, candidate := range subtypesByType[t] {
		if candidate == s {
			return true
		}
	}
	return false
}

// Account is one node in a tenant's chart of accounts.
type Account struct {
	ID              snowflake.ID   `gorm:"primaryKey" json:"id"`
	OrgID           snowflake.ID   `gorm:"not null;index:ix_accounts_org_type,priority:1" json:"org_id"`
	AccountNumber   *string        `gorm:"type:text" json:"account_number,omitempty"`
	Name            string         `gorm:"type:text;not null" json:"name"`
	Description     string         `gorm:"type:text;not null;default:''" json:"description"`
	Type            AccountType    `gorm:"type:text;not null;index:ix_accounts_org_type,priority:2" json:"type"`
	Subtype         AccountSubtype `gorm:"type:text;not null;default:''" json:"subtype"`
	ParentAccountID *snowflake.ID  `gorm:"index" json:"parent_account_id,omitempty"`
	IsSystemAccount bool           `gorm:"not null;default:false" json:"is_system_account"`
	IsActive        bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "accounts" }
