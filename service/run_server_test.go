package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parabank-qa/acceptor/runner"
	"github.com/parabank-qa/acceptor/types"
)

type stubStore struct {
	cases map[string]types.TestCase
}

func (s *stubStore) Get(id string) (types.TestCase, error) {
	tc, ok := s.cases[id]
	if !ok {
		return types.TestCase{}, fmt.Errorf("unknown test case %q", id)
	}
	return tc, nil
}

type stubExecutor struct{}

func (stubExecutor) Kind() types.ExecutorKind {
	return types.ExecutorKindAPI
}

func (stubExecutor) Execute(_ context.Context, tc types.TestCase) *types.ExecutionResult {
	if tc.Data["outcome"] == "fail" {
		res := types.NewFailure(tc.ID+" rejected", "bad credentials")
		res.StatusCode = 400
		return res
	}
	res := types.NewSuccess(tc.ID + " done")
	res.StatusCode = 200
	return res
}

func startTestServer(t *testing.T) *RunServer {
	t.Helper()

	coordinator, err := runner.NewCoordinator(runner.Config{
		Store: &stubStore{cases: map[string]types.TestCase{
			"good": {ID: "good", Kind: types.ExecutorKindAPI, Functionality: "login"},
			"bad": {
				ID: "bad", Kind: types.ExecutorKindAPI, Functionality: "login",
				Data: map[string]string{"outcome": "fail"},
			},
		}},
		Executors: map[types.ExecutorKind]runner.Executor{
			types.ExecutorKindAPI: stubExecutor{},
		},
		Log: log.NewLogger(log.DiscardHandler()),
	})
	require.NoError(t, err)

	srv := NewRunServer(log.NewLogger(log.DiscardHandler()), "127.0.0.1:0", coordinator)
	require.NoError(t, srv.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func TestRunServer_Healthz(t *testing.T) {
	srv := startTestServer(t)

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "OK", body["status"])
}

func TestRunServer_SubmitAndPollRun(t *testing.T) {
	srv := startTestServer(t)
	base := "http://" + srv.Addr()

	resp := postJSON(t, base+"/runs", submitRunRequest{
		TestCaseIDs: []string{"good", "bad"},
		Parallel:    true,
		PoolSize:    2,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var submitted submitRunResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&submitted))
	require.NotEmpty(t, submitted.RunID)

	// Poll until terminal.
	var status runStatusResponse
	require.Eventually(t, func() bool {
		getResp, err := http.Get(base + "/runs/" + submitted.RunID)
		if err != nil {
			return false
		}
		defer getResp.Body.Close()
		if getResp.StatusCode != http.StatusOK {
			return false
		}
		if err := json.NewDecoder(getResp.Body).Decode(&status); err != nil {
			return false
		}
		return status.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, types.RunStatusCompleted, status.Status)
	assert.Equal(t, 2, status.TotalTests)
	assert.Equal(t, 1, status.Passed)
	assert.Equal(t, 1, status.Failed)
	require.Len(t, status.Results, 2)

	// Dispatch order is preserved in the response.
	assert.Equal(t, "good", status.Results[0].TestCaseID)
	assert.True(t, status.Results[0].Success)
	assert.Equal(t, 200, status.Results[0].StatusCode)

	assert.Equal(t, "bad", status.Results[1].TestCaseID)
	assert.False(t, status.Results[1].Success)
	assert.Equal(t, "bad credentials", status.Results[1].ErrorMessage)
}

func TestRunServer_SubmitEmptyBatch(t *testing.T) {
	srv := startTestServer(t)

	resp := postJSON(t, "http://"+srv.Addr()+"/runs", submitRunRequest{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRunServer_SubmitInvalidBody(t *testing.T) {
	srv := startTestServer(t)

	resp, err := http.Post("http://"+srv.Addr()+"/runs", "application/json",
		bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRunServer_UnknownRun(t *testing.T) {
	srv := startTestServer(t)

	resp, err := http.Get("http://" + srv.Addr() + "/runs/no-such-run")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "unknown run")
}
