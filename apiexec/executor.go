// Package apiexec implements the API executor capability: one attempt of one
// remote-API test case against the target banking service, always producing
// an ExecutionResult and never letting an internal failure escape.
package apiexec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/parabank-qa/acceptor/types"
)

const (
	defaultRequestTimeout = 10 * time.Second

	// maxResponseBody bounds how much of a response is retained on the
	// result; anything past it is truncated, not an error.
	maxResponseBody = 64 * 1024
)

// Config configures an API executor. The config is copied into the
// constructor and the executor builds its own HTTP client from it; nothing is
// shared process-wide.
type Config struct {
	// BaseURL is the root of the target service's REST API, e.g.
	// "https://host/parabank/services/bank". Empty BaseURL switches the
	// executor into simulated mode.
	BaseURL string

	// Timeout is the default request deadline, overridable per test case.
	Timeout time.Duration

	// DefaultHeaders are applied to every outbound request.
	DefaultHeaders map[string]string

	// Simulate forces deterministic synthetic responses instead of real
	// outbound calls, for when the target service cannot be reached or
	// authenticated against. Simulated results are clearly marked in
	// their details.
	Simulate bool
}

type handlerFunc func(ctx context.Context, data map[string]string) *types.ExecutionResult

// Executor is the API executor capability.
type Executor struct {
	cfg      Config
	client   *http.Client
	log      log.Logger
	handlers map[types.Functionality]handlerFunc
}

// NewExecutor creates an API executor with its own HTTP client.
func NewExecutor(cfg Config, logger log.Logger) *Executor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRequestTimeout
	}
	if logger == nil {
		logger = log.New()
	}

	e := &Executor{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    logger.New("component", "api-executor"),
	}
	e.handlers = map[types.Functionality]handlerFunc{
		types.FuncLogin:                 e.login,
		types.FuncCreateCustomer:        e.createCustomer,
		types.FuncUpdateCustomer:        e.updateCustomer,
		types.FuncDeleteCustomer:        e.deleteCustomer,
		types.FuncGetCustomerDetails:    e.getCustomerDetails,
		types.FuncGetAccounts:           e.getAccounts,
		types.FuncGetTransactionHistory: e.getTransactionHistory,
		types.FuncTransferFunds:         e.transferFunds,
		types.FuncPayBills:              e.payBills,
		types.FuncRequestLoan:           e.requestLoan,
		types.FuncGetAccountDetails:     e.getAccountDetails,
		types.FuncValidate:              e.validate,
		types.FuncHealthCheck:           e.healthCheck,
	}
	return e
}

// Kind implements runner.Executor.
func (e *Executor) Kind() types.ExecutorKind {
	return types.ExecutorKindAPI
}

// Execute performs one attempt of the test case. An unrecognized
// functionality is rejected before dispatch and is never a transient error.
func (e *Executor) Execute(ctx context.Context, tc types.TestCase) (res *types.ExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			res = types.NewFailure(
				fmt.Sprintf("API operation %q aborted", tc.Functionality),
				fmt.Sprintf("internal error in API executor: %v", r))
		}
	}()

	fn, err := types.ParseFunctionality(types.ExecutorKindAPI, tc.Functionality)
	if err != nil {
		return types.NewFailure(
			fmt.Sprintf("unsupported API operation %q", tc.Functionality),
			err.Error())
	}

	if tc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, tc.Timeout)
		defer cancel()
	}

	if e.simulated() {
		return e.simulate(fn, tc.Data)
	}
	return e.handlers[fn](ctx, tc.Data)
}

func (e *Executor) simulated() bool {
	return e.cfg.Simulate || e.cfg.BaseURL == ""
}

// do issues one request and converts the response into an ExecutionResult.
// Transport errors become failures with a diagnostic message; non-2xx
// responses become failures that carry the status code and body.
func (e *Executor) do(ctx context.Context, method, path string, query url.Values, body io.Reader, op types.Functionality) *types.ExecutionResult {
	endpoint := strings.TrimRight(e.cfg.BaseURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return types.NewFailure(
			fmt.Sprintf("%s request could not be built", op),
			err.Error())
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range e.cfg.DefaultHeaders {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return types.NewFailure(
			fmt.Sprintf("%s request to %s failed", op, endpoint),
			err.Error())
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if readErr != nil {
		e.log.Warn("Response body read failed", "operation", op, "error", readErr)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		res := types.NewSuccess(fmt.Sprintf("%s returned %d", op, resp.StatusCode))
		res.StatusCode = resp.StatusCode
		res.ResponseBody = string(raw)
		return res
	}

	res := types.NewFailure(
		fmt.Sprintf("%s returned %d", op, resp.StatusCode),
		fmt.Sprintf("%s returned unexpected status %d", op, resp.StatusCode))
	res.StatusCode = resp.StatusCode
	res.ResponseBody = string(raw)
	return res
}

// requireData returns the named values from data, or a failure result naming
// the first missing key.
func requireData(op types.Functionality, data map[string]string, keys ...string) ([]string, *types.ExecutionResult) {
	values := make([]string, 0, len(keys))
	for _, k := range keys {
		v, ok := data[k]
		if !ok || v == "" {
			return nil, types.NewFailure(
				fmt.Sprintf("%s is missing input %q", op, k),
				fmt.Sprintf("required input %q not provided for %s", k, op))
		}
		values = append(values, v)
	}
	return values, nil
}

func (e *Executor) login(ctx context.Context, data map[string]string) *types.ExecutionResult {
	vals, failure := requireData(types.FuncLogin, data, "username", "password")
	if failure != nil {
		return failure
	}
	path := fmt.Sprintf("/login/%s/%s", url.PathEscape(vals[0]), url.PathEscape(vals[1]))
	return e.do(ctx, http.MethodGet, path, nil, nil, types.FuncLogin)
}

func (e *Executor) createCustomer(ctx context.Context, data map[string]string) *types.ExecutionResult {
	body := jsonBody(data)
	return e.do(ctx, http.MethodPost, "/customers", nil, body, types.FuncCreateCustomer)
}

func (e *Executor) updateCustomer(ctx context.Context, data map[string]string) *types.ExecutionResult {
	vals, failure := requireData(types.FuncUpdateCustomer, data, "customerId")
	if failure != nil {
		return failure
	}
	path := "/customers/update/" + url.PathEscape(vals[0])
	return e.do(ctx, http.MethodPost, path, nil, jsonBody(data), types.FuncUpdateCustomer)
}

func (e *Executor) deleteCustomer(ctx context.Context, data map[string]string) *types.ExecutionResult {
	vals, failure := requireData(types.FuncDeleteCustomer, data, "customerId")
	if failure != nil {
		return failure
	}
	return e.do(ctx, http.MethodDelete, "/customers/"+url.PathEscape(vals[0]), nil, nil, types.FuncDeleteCustomer)
}

func (e *Executor) getCustomerDetails(ctx context.Context, data map[string]string) *types.ExecutionResult {
	vals, failure := requireData(types.FuncGetCustomerDetails, data, "customerId")
	if failure != nil {
		return failure
	}
	return e.do(ctx, http.MethodGet, "/customers/"+url.PathEscape(vals[0]), nil, nil, types.FuncGetCustomerDetails)
}

func (e *Executor) getAccounts(ctx context.Context, data map[string]string) *types.ExecutionResult {
	vals, failure := requireData(types.FuncGetAccounts, data, "customerId")
	if failure != nil {
		return failure
	}
	path := fmt.Sprintf("/customers/%s/accounts", url.PathEscape(vals[0]))
	return e.do(ctx, http.MethodGet, path, nil, nil, types.FuncGetAccounts)
}

func (e *Executor) getAccountDetails(ctx context.Context, data map[string]string) *types.ExecutionResult {
	vals, failure := requireData(types.FuncGetAccountDetails, data, "accountId")
	if failure != nil {
		return failure
	}
	return e.do(ctx, http.MethodGet, "/accounts/"+url.PathEscape(vals[0]), nil, nil, types.FuncGetAccountDetails)
}

func (e *Executor) getTransactionHistory(ctx context.Context, data map[string]string) *types.ExecutionResult {
	vals, failure := requireData(types.FuncGetTransactionHistory, data, "accountId")
	if failure != nil {
		return failure
	}
	path := fmt.Sprintf("/accounts/%s/transactions", url.PathEscape(vals[0]))
	return e.do(ctx, http.MethodGet, path, nil, nil, types.FuncGetTransactionHistory)
}

func (e *Executor) transferFunds(ctx context.Context, data map[string]string) *types.ExecutionResult {
	vals, failure := requireData(types.FuncTransferFunds, data, "fromAccountId", "toAccountId", "amount")
	if failure != nil {
		return failure
	}
	q := url.Values{}
	q.Set("fromAccountId", vals[0])
	q.Set("toAccountId", vals[1])
	q.Set("amount", vals[2])
	return e.do(ctx, http.MethodPost, "/transfer", q, nil, types.FuncTransferFunds)
}

func (e *Executor) payBills(ctx context.Context, data map[string]string) *types.ExecutionResult {
	vals, failure := requireData(types.FuncPayBills, data, "accountId", "amount")
	if failure != nil {
		return failure
	}
	q := url.Values{}
	q.Set("accountId", vals[0])
	q.Set("amount", vals[1])
	return e.do(ctx, http.MethodPost, "/billpay", q, jsonBody(data), types.FuncPayBills)
}

func (e *Executor) requestLoan(ctx context.Context, data map[string]string) *types.ExecutionResult {
	vals, failure := requireData(types.FuncRequestLoan, data, "customerId", "amount", "downPayment", "fromAccountId")
	if failure != nil {
		return failure
	}
	q := url.Values{}
	q.Set("customerId", vals[0])
	q.Set("amount", vals[1])
	q.Set("downPayment", vals[2])
	q.Set("fromAccountId", vals[3])
	return e.do(ctx, http.MethodPost, "/requestLoan", q, nil, types.FuncRequestLoan)
}

func (e *Executor) validate(ctx context.Context, data map[string]string) *types.ExecutionResult {
	vals, failure := requireData(types.FuncValidate, data, "username", "password")
	if failure != nil {
		return failure
	}
	path := fmt.Sprintf("/login/%s/%s", url.PathEscape(vals[0]), url.PathEscape(vals[1]))
	return e.do(ctx, http.MethodGet, path, nil, nil, types.FuncValidate)
}

func (e *Executor) healthCheck(ctx context.Context, data map[string]string) *types.ExecutionResult {
	return e.do(ctx, http.MethodGet, "/healthcheck", nil, nil, types.FuncHealthCheck)
}

func jsonBody(data map[string]string) io.Reader {
	raw, err := json.Marshal(data)
	if err != nil {
		raw = []byte("{}")
	}
	return bytes.NewReader(raw)
}
