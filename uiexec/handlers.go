package uiexec

import (
	"context"
	"fmt"

	"github.com/parabank-qa/acceptor/browser"
	"github.com/parabank-qa/acceptor/types"
)

// newAuth builds an authenticator bound to this executor's configuration,
// used both for the auth gate and for the register/login operations
// themselves.
func (e *Executor) newAuth() *Authenticator {
	return NewAuthenticator(AuthConfig{
		BaseURL:         e.cfg.BaseURL,
		Username:        e.cfg.Username,
		Password:        e.cfg.Password,
		SettleDelay:     e.cfg.SettleDelay,
		ProfileDefaults: e.cfg.ProfileDefaults,
	}, e.log)
}

// register exercises the registration flow directly, without the
// reuse/login fallback: the operation under test is registration itself.
// A caller-supplied username is used as-is; one is generated otherwise.
func (e *Executor) register(ctx context.Context, s browser.Session, data map[string]string) *types.ExecutionResult {
	auth := e.newAuth()
	if err := auth.doRegister(ctx, s, data, data["username"]); err != nil {
		return types.NewFailure("register was not accepted", err.Error())
	}
	return types.NewSuccess("register confirmed by page state")
}

// login exercises the sign-in flow directly with the caller's credentials,
// without falling back to registration.
func (e *Executor) login(ctx context.Context, s browser.Session, data map[string]string) *types.ExecutionResult {
	username := e.cfg.Username
	password := e.cfg.Password
	if v := data["username"]; v != "" {
		username = v
	}
	if v := data["password"]; v != "" {
		password = v
	}

	if err := s.Navigate(ctx, e.cfg.BaseURL+"/index.htm"); err != nil {
		return types.NewFailure("login page unreachable", err.Error())
	}
	auth := e.newAuth()
	if err := auth.doLogin(ctx, s, username, password); err != nil {
		return types.NewFailure(fmt.Sprintf("login failed for %q", username), err.Error())
	}
	return types.NewSuccess(fmt.Sprintf("login confirmed for %q", username))
}

func (e *Executor) openAccount(ctx context.Context, s browser.Session, data map[string]string) *types.ExecutionResult {
	if err := s.Navigate(ctx, e.cfg.BaseURL+"/openaccount.htm"); err != nil {
		return types.NewFailure("open-account page unreachable", err.Error())
	}
	accountType := data["accountType"]
	if accountType == "" {
		accountType = "CHECKING"
	}
	if err := s.Fill(ctx, "select[id='type']", accountType); err != nil {
		return types.NewFailure("open-account form not available", err.Error())
	}
	if v := data["fromAccountId"]; v != "" {
		if err := s.Fill(ctx, "select[id='fromAccountId']", v); err != nil {
			return types.NewFailure("open-account form not available", err.Error())
		}
	}
	if err := s.Click(ctx, "input[value='Open New Account']"); err != nil {
		return types.NewFailure("open-account submit failed", err.Error())
	}
	return e.classifyOutcome(ctx, s, types.FuncOpenAccount, MarkerClassifier{
		SuccessMarkers: []string{"account opened"},
		FailureMarkers: []string{"error"},
	})
}

func (e *Executor) accountOverview(ctx context.Context, s browser.Session, data map[string]string) *types.ExecutionResult {
	if err := s.Navigate(ctx, e.cfg.BaseURL+"/overview.htm"); err != nil {
		return types.NewFailure("account-overview page unreachable", err.Error())
	}
	return e.classifyOutcome(ctx, s, types.FuncAccountOverview, MarkerClassifier{
		SuccessMarkers:  []string{"accounts overview"},
		FailureMarkers:  []string{"error"},
		SuccessURLParts: []string{"overview.htm"},
	})
}

func (e *Executor) transferFunds(ctx context.Context, s browser.Session, data map[string]string) *types.ExecutionResult {
	if err := s.Navigate(ctx, e.cfg.BaseURL+"/transfer.htm"); err != nil {
		return types.NewFailure("transfer-funds page unreachable", err.Error())
	}
	amount := data["amount"]
	if amount == "" {
		amount = "1.00"
	}
	if err := s.Fill(ctx, "input[id='amount']", amount); err != nil {
		return types.NewFailure("transfer-funds form not available", err.Error())
	}
	if v := data["fromAccountId"]; v != "" {
		if err := s.Fill(ctx, "select[id='fromAccountId']", v); err != nil {
			return types.NewFailure("transfer-funds form not available", err.Error())
		}
	}
	if v := data["toAccountId"]; v != "" {
		if err := s.Fill(ctx, "select[id='toAccountId']", v); err != nil {
			return types.NewFailure("transfer-funds form not available", err.Error())
		}
	}
	if err := s.Click(ctx, "input[value='Transfer']"); err != nil {
		return types.NewFailure("transfer-funds submit failed", err.Error())
	}
	return e.classifyOutcome(ctx, s, types.FuncTransferFunds, MarkerClassifier{
		SuccessMarkers: []string{"transfer complete"},
		FailureMarkers: []string{"error"},
	})
}

// billPayDefaults fill the payee form fields the test case does not supply.
func billPayDefaults() map[string]string {
	return map[string]string{
		"payeeName":    "Electric Company",
		"payeeAddress": "100 Grid Road",
		"payeeCity":    "Testville",
		"payeeState":   "CA",
		"payeeZipCode": "90210",
		"payeePhone":   "555-0123",
		"amount":       "10.00",
	}
}

func (e *Executor) payBills(ctx context.Context, s browser.Session, data map[string]string) *types.ExecutionResult {
	if err := s.Navigate(ctx, e.cfg.BaseURL+"/billpay.htm"); err != nil {
		return types.NewFailure("pay-bills page unreachable", err.Error())
	}

	form := types.MergeData(billPayDefaults(), data)
	account := form["accountId"]
	if account == "" {
		account = form["payeeAccountId"]
	}
	if account == "" {
		account = "13344"
	}

	fields := []struct {
		selector string
		value    string
	}{
		{"input[name='payee.name']", form["payeeName"]},
		{"input[name='payee.address.street']", form["payeeAddress"]},
		{"input[name='payee.address.city']", form["payeeCity"]},
		{"input[name='payee.address.state']", form["payeeState"]},
		{"input[name='payee.address.zipCode']", form["payeeZipCode"]},
		{"input[name='payee.phoneNumber']", form["payeePhone"]},
		{"input[name='payee.accountNumber']", account},
		{"input[name='verifyAccount']", account},
		{"input[name='amount']", form["amount"]},
	}
	for _, f := range fields {
		if err := s.Fill(ctx, f.selector, f.value); err != nil {
			return types.NewFailure("pay-bills form not available", err.Error())
		}
	}
	if err := s.Click(ctx, "input[value='Send Payment']"); err != nil {
		return types.NewFailure("pay-bills submit failed", err.Error())
	}
	return e.classifyOutcome(ctx, s, types.FuncPayBills, MarkerClassifier{
		SuccessMarkers: []string{"bill payment complete"},
		FailureMarkers: []string{"error"},
	})
}

func (e *Executor) findTransactions(ctx context.Context, s browser.Session, data map[string]string) *types.ExecutionResult {
	if err := s.Navigate(ctx, e.cfg.BaseURL+"/findtrans.htm"); err != nil {
		return types.NewFailure("find-transactions page unreachable", err.Error())
	}
	amount := data["amount"]
	if amount == "" {
		amount = "100"
	}
	if err := s.Fill(ctx, "input[id='criteria.amount']", amount); err != nil {
		return types.NewFailure("find-transactions form not available", err.Error())
	}
	if err := s.Click(ctx, "button[id='findByAmount']"); err != nil {
		return types.NewFailure("find-transactions submit failed", err.Error())
	}
	return e.classifyOutcome(ctx, s, types.FuncFindTransactions, MarkerClassifier{
		SuccessMarkers: []string{"transaction results", "transaction details"},
		FailureMarkers: []string{"error"},
	})
}

func (e *Executor) updateProfile(ctx context.Context, s browser.Session, data map[string]string) *types.ExecutionResult {
	if err := s.Navigate(ctx, e.cfg.BaseURL+"/updateprofile.htm"); err != nil {
		return types.NewFailure("update-profile page unreachable", err.Error())
	}

	// Only touch the fields the test case supplies; the rest keep their
	// current values.
	selectors := map[string]string{
		"firstName": "input[id='customer.firstName']",
		"lastName":  "input[id='customer.lastName']",
		"address":   "input[id='customer.address.street']",
		"city":      "input[id='customer.address.city']",
		"state":     "input[id='customer.address.state']",
		"zipCode":   "input[id='customer.address.zipCode']",
		"phone":     "input[id='customer.phoneNumber']",
	}
	touched := 0
	for key, selector := range selectors {
		v, ok := data[key]
		if !ok || v == "" {
			continue
		}
		if err := s.Fill(ctx, selector, v); err != nil {
			return types.NewFailure("update-profile form not available", err.Error())
		}
		touched++
	}
	if touched == 0 {
		if err := s.Fill(ctx, selectors["phone"], "555-0199"); err != nil {
			return types.NewFailure("update-profile form not available", err.Error())
		}
	}
	if err := s.Click(ctx, "input[value='Update Profile']"); err != nil {
		return types.NewFailure("update-profile submit failed", err.Error())
	}
	return e.classifyOutcome(ctx, s, types.FuncUpdateProfile, MarkerClassifier{
		SuccessMarkers: []string{"profile updated"},
		FailureMarkers: []string{"error"},
	})
}

func (e *Executor) requestLoan(ctx context.Context, s browser.Session, data map[string]string) *types.ExecutionResult {
	if err := s.Navigate(ctx, e.cfg.BaseURL+"/requestloan.htm"); err != nil {
		return types.NewFailure("request-loan page unreachable", err.Error())
	}
	amount := data["amount"]
	if amount == "" {
		amount = "1000"
	}
	downPayment := data["downPayment"]
	if downPayment == "" {
		downPayment = "100"
	}
	if err := s.Fill(ctx, "input[id='amount']", amount); err != nil {
		return types.NewFailure("request-loan form not available", err.Error())
	}
	if err := s.Fill(ctx, "input[id='downPayment']", downPayment); err != nil {
		return types.NewFailure("request-loan form not available", err.Error())
	}
	if v := data["fromAccountId"]; v != "" {
		if err := s.Fill(ctx, "select[id='fromAccountId']", v); err != nil {
			return types.NewFailure("request-loan form not available", err.Error())
		}
	}
	if err := s.Click(ctx, "input[value='Apply Now']"); err != nil {
		return types.NewFailure("request-loan submit failed", err.Error())
	}
	return e.classifyOutcome(ctx, s, types.FuncRequestLoan, MarkerClassifier{
		SuccessMarkers: []string{"loan request processed"},
		FailureMarkers: []string{"error"},
	})
}

func (e *Executor) logout(ctx context.Context, s browser.Session, data map[string]string) *types.ExecutionResult {
	if err := s.Click(ctx, "a[href*='logout']"); err != nil {
		return types.NewFailure("logout link not available", err.Error())
	}
	return e.classifyOutcome(ctx, s, types.FuncLogout, MarkerClassifier{
		SuccessMarkers:  []string{"customer login"},
		FailureMarkers:  []string{"error"},
		SuccessURLParts: []string{"index.htm"},
	})
}
