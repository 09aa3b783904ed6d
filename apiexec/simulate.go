package apiexec

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/parabank-qa/acceptor/types"
)

// simulatedUserPrefix gates which usernames the synthetic login accepts.
// Deterministic on purpose: the same inputs always produce the same result.
const simulatedUserPrefix = "testuser"

// simulate produces a deterministic synthetic response for an operation when
// the real service is unavailable. Every simulated result is marked as such
// in its details so degraded runs are distinguishable from real ones.
func (e *Executor) simulate(fn types.Functionality, data map[string]string) *types.ExecutionResult {
	switch fn {
	case types.FuncLogin, types.FuncValidate:
		return e.simulateLogin(fn, data)

	case types.FuncTransferFunds:
		if _, failure := requireData(fn, data, "fromAccountId", "toAccountId", "amount"); failure != nil {
			return simulatedStatus(fn, http.StatusBadRequest, failure.ErrorMessage, "")
		}
		body := fmt.Sprintf(`{"transactionId":77001,"fromAccountId":%q,"toAccountId":%q,"amount":%q}`,
			data["fromAccountId"], data["toAccountId"], data["amount"])
		return simulatedStatus(fn, http.StatusOK, "", body)

	case types.FuncPayBills:
		if _, failure := requireData(fn, data, "accountId", "amount"); failure != nil {
			return simulatedStatus(fn, http.StatusBadRequest, failure.ErrorMessage, "")
		}
		return simulatedStatus(fn, http.StatusOK, "", `{"payeeName":"Simulated Payee","amount":`+data["amount"]+`}`)

	case types.FuncHealthCheck:
		return simulatedStatus(fn, http.StatusOK, "", `{"status":"UP"}`)

	default:
		body := fmt.Sprintf(`{"operation":%q,"result":"ok"}`, fn)
		return simulatedStatus(fn, http.StatusOK, "", body)
	}
}

func (e *Executor) simulateLogin(fn types.Functionality, data map[string]string) *types.ExecutionResult {
	vals, failure := requireData(fn, data, "username", "password")
	if failure != nil {
		return simulatedStatus(fn, http.StatusBadRequest, failure.ErrorMessage, "")
	}
	username := vals[0]
	if strings.HasPrefix(strings.ToLower(username), simulatedUserPrefix) {
		body := fmt.Sprintf(`{"id":12212,"firstName":"John","lastName":"Smith","username":%q}`, username)
		return simulatedStatus(fn, http.StatusOK, "", body)
	}
	return simulatedStatus(fn, http.StatusBadRequest,
		fmt.Sprintf("invalid credentials for %q", username), "")
}

// simulatedStatus builds a synthetic result carrying the given status code.
// Non-2xx codes produce failures exactly like a real response would.
func simulatedStatus(fn types.Functionality, code int, errMsg, body string) *types.ExecutionResult {
	details := fmt.Sprintf("simulated: %s returned %d", fn, code)
	if code >= 200 && code < 300 {
		res := types.NewSuccess(details)
		res.StatusCode = code
		res.ResponseBody = body
		return res
	}
	if errMsg == "" {
		errMsg = fmt.Sprintf("%s returned unexpected status %d", fn, code)
	}
	res := types.NewFailure(details, errMsg)
	res.StatusCode = code
	res.ResponseBody = body
	return res
}
