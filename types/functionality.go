package types

import (
	"fmt"
	"strings"
)

// ExecutorKind distinguishes API-driven test cases from browser-driven ones.
// A test case is always exactly one kind.
type ExecutorKind string

const (
	ExecutorKindAPI ExecutorKind = "api"
	ExecutorKindUI  ExecutorKind = "ui"
)

// IsValid reports whether the kind is one of the supported executor kinds.
func (k ExecutorKind) IsValid() bool {
	return k == ExecutorKindAPI || k == ExecutorKindUI
}

// Functionality is one operation from the closed set supported by an executor
// kind. Names are matched case-insensitively at the boundary; anything outside
// the set is rejected before dispatch.
type Functionality string

const (
	FuncLogin                 Functionality = "login"
	FuncCreateCustomer        Functionality = "create-customer"
	FuncUpdateCustomer        Functionality = "update-customer"
	FuncDeleteCustomer        Functionality = "delete-customer"
	FuncGetCustomerDetails    Functionality = "get-customer-details"
	FuncGetAccounts           Functionality = "get-accounts"
	FuncGetTransactionHistory Functionality = "get-transaction-history"
	FuncTransferFunds         Functionality = "transfer-funds"
	FuncPayBills              Functionality = "pay-bills"
	FuncRequestLoan           Functionality = "request-loan"
	FuncGetAccountDetails     Functionality = "get-account-details"
	FuncValidate              Functionality = "validate"
	FuncHealthCheck           Functionality = "health-check"

	FuncRegister         Functionality = "register"
	FuncOpenAccount      Functionality = "open-account"
	FuncAccountOverview  Functionality = "account-overview"
	FuncFindTransactions Functionality = "find-transactions"
	FuncUpdateProfile    Functionality = "update-profile"
	FuncLogout           Functionality = "logout"
)

var apiFunctionalities = map[Functionality]struct{}{
	FuncLogin:                 {},
	FuncCreateCustomer:        {},
	FuncUpdateCustomer:        {},
	FuncDeleteCustomer:        {},
	FuncGetCustomerDetails:    {},
	FuncGetAccounts:           {},
	FuncGetTransactionHistory: {},
	FuncTransferFunds:         {},
	FuncPayBills:              {},
	FuncRequestLoan:           {},
	FuncGetAccountDetails:     {},
	FuncValidate:              {},
	FuncHealthCheck:           {},
}

var uiFunctionalities = map[Functionality]struct{}{
	FuncRegister:         {},
	FuncLogin:            {},
	FuncOpenAccount:      {},
	FuncAccountOverview:  {},
	FuncTransferFunds:    {},
	FuncPayBills:         {},
	FuncFindTransactions: {},
	FuncUpdateProfile:    {},
	FuncRequestLoan:      {},
	FuncLogout:           {},
}

// ParseFunctionality resolves a functionality name against the closed set for
// the given executor kind. Matching is case-insensitive and ignores
// surrounding whitespace. An unknown name is an error, never a fallthrough.
func ParseFunctionality(kind ExecutorKind, name string) (Functionality, error) {
	f := Functionality(strings.ToLower(strings.TrimSpace(name)))

	var set map[Functionality]struct{}
	switch kind {
	case ExecutorKindAPI:
		set = apiFunctionalities
	case ExecutorKindUI:
		set = uiFunctionalities
	default:
		return "", fmt.Errorf("unknown executor kind %q", kind)
	}

	if _, ok := set[f]; !ok {
		return "", fmt.Errorf("unknown %s functionality %q", kind, name)
	}
	return f, nil
}

// Functionalities returns the supported operation names for a kind, for
// listing and validation messages. The result is a copy.
func Functionalities(kind ExecutorKind) []Functionality {
	var set map[Functionality]struct{}
	switch kind {
	case ExecutorKindAPI:
		set = apiFunctionalities
	case ExecutorKindUI:
		set = uiFunctionalities
	default:
		return nil
	}
	out := make([]Functionality, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	return out
}
