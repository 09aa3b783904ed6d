package service

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/cors"

	"github.com/parabank-qa/acceptor/runner"
	"github.com/parabank-qa/acceptor/types"
)

// RunServer exposes the run-triggering REST API:
//
//	POST /runs          submit a batch, returns 202 with the run id
//	GET  /runs/{runID}  poll a run's status and results
//	GET  /healthz       liveness probe
type RunServer struct {
	log         log.Logger
	addr        string
	coordinator *runner.Coordinator

	listener net.Listener
	server   *http.Server
}

func NewRunServer(logger log.Logger, addr string, coordinator *runner.Coordinator) *RunServer {
	return &RunServer{
		log:         logger,
		addr:        addr,
		coordinator: coordinator,
	}
}

func (s *RunServer) Start() error {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/runs", s.handleSubmitRun).Methods(http.MethodPost)
	r.HandleFunc("/runs/{runID}", s.handleGetRun).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	})

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrap(err, "failed to listen on run server address")
	}
	s.listener = listener

	s.server = &http.Server{
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.server.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("Run server terminated", "error", err)
		}
	}()
	s.log.Info("Run server started", "addr", s.listener.Addr().String())
	return nil
}

func (s *RunServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Addr returns the bound listener address, useful when the configured port
// is 0.
func (s *RunServer) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

func (s *RunServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

type submitRunRequest struct {
	TestCaseIDs []string `json:"testCaseIds"`
	Parallel    bool     `json:"parallel"`
	PoolSize    int      `json:"poolSize"`
}

type submitRunResponse struct {
	RunID string `json:"runId"`
}

func (s *RunServer) handleSubmitRun(w http.ResponseWriter, r *http.Request) {
	var req submitRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	runID, err := s.coordinator.SubmitRun(req.TestCaseIDs, req.Parallel, req.PoolSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.log.Info("Run submitted", "run_id", runID, "testCases", len(req.TestCaseIDs), "parallel", req.Parallel)
	writeJSON(w, http.StatusAccepted, submitRunResponse{RunID: runID})
}

type runResultItem struct {
	TestCaseID     string    `json:"testCaseId"`
	Success        bool      `json:"success"`
	Details        string    `json:"details"`
	ErrorMessage   string    `json:"errorMessage,omitempty"`
	StatusCode     int       `json:"statusCode,omitempty"`
	ResponseBody   string    `json:"responseBody,omitempty"`
	ScreenshotPath string    `json:"screenshotPath,omitempty"`
	ExecutedAt     time.Time `json:"executedAt"`
}

type runStatusResponse struct {
	RunID      string          `json:"runId"`
	Status     types.RunStatus `json:"status"`
	TotalTests int             `json:"totalTests"`
	Passed     int             `json:"passed"`
	Failed     int             `json:"failed"`
	Error      string          `json:"error,omitempty"`
	StartedAt  *time.Time      `json:"startedAt,omitempty"`
	EndedAt    *time.Time      `json:"endedAt,omitempty"`
	Results    []runResultItem `json:"results"`
}

func (s *RunServer) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["runID"]
	snap, err := s.coordinator.GetRunStatus(runID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	resp := runStatusResponse{
		RunID:      snap.RunID,
		Status:     snap.Status,
		TotalTests: snap.TotalTests,
		Passed:     snap.Passed,
		Failed:     snap.Failed,
		Error:      snap.Error,
		Results:    make([]runResultItem, 0, len(snap.Results)),
	}
	if !snap.StartedAt.IsZero() {
		t := snap.StartedAt
		resp.StartedAt = &t
	}
	if !snap.EndedAt.IsZero() {
		t := snap.EndedAt
		resp.EndedAt = &t
	}
	for _, item := range snap.Results {
		res := item.Result
		resp.Results = append(resp.Results, runResultItem{
			TestCaseID:     item.TestCaseID,
			Success:        res.Success,
			Details:        res.Details,
			ErrorMessage:   res.ErrorMessage,
			StatusCode:     res.StatusCode,
			ResponseBody:   res.ResponseBody,
			ScreenshotPath: res.ScreenshotPath,
			ExecutedAt:     res.ExecutedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
