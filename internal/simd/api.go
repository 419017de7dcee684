package simd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/GoSim-25-26J-441/queue-sim/pkg/config"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/models"
)

// ErrBadRequest marks malformed API input
var ErrBadRequest = errors.New("bad request")

// CreateRunRequest is the body of a create call, shared by HTTP and gRPC.
// Scenario may be a JSON object or ScenarioYAML a YAML document; exactly one is required.
type CreateRunRequest struct {
	RunID          string          `json:"run_id,omitempty"`
	Scenario       json.RawMessage `json:"scenario,omitempty"`
	ScenarioYAML   string          `json:"scenario_yaml,omitempty"`
	CallbackURL    string          `json:"callback_url,omitempty"`
	CallbackSecret string          `json:"callback_secret,omitempty"`
	Start          bool            `json:"start,omitempty"`
}

// ParseScenario decodes the scenario carried by the request. JSON is a YAML
// subset, so both forms go through the same schema check and defaults.
func (r *CreateRunRequest) ParseScenario() (*config.Scenario, error) {
	hasJSON := len(r.Scenario) > 0 && string(r.Scenario) != "null"
	hasYAML := strings.TrimSpace(r.ScenarioYAML) != ""
	switch {
	case hasJSON && hasYAML:
		return nil, fmt.Errorf("%w: scenario and scenario_yaml are mutually exclusive", ErrBadRequest)
	case hasJSON:
		return config.ParseScenarioYAML(r.Scenario)
	case hasYAML:
		return config.ParseScenarioYAMLString(r.ScenarioYAML)
	default:
		return nil, fmt.Errorf("%w: scenario is required", ErrBadRequest)
	}
}

// Service glues the store and executor together for the transports
type Service struct {
	Store         *RunStore
	Executor      *RunExecutor
	defaultSecret string
}

// NewService creates a Service. defaultSecret is used for callbacks that do not carry one.
func NewService(store *RunStore, executor *RunExecutor, defaultSecret string) *Service {
	return &Service{Store: store, Executor: executor, defaultSecret: defaultSecret}
}

// CreateRun validates the request, registers the run and optionally starts it
func (s *Service) CreateRun(req *CreateRunRequest) (*RunRecord, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request is required", ErrBadRequest)
	}
	scenario, err := req.ParseScenario()
	if err != nil {
		return nil, err
	}
	if req.CallbackURL != "" {
		if err := validateCallbackURL(strings.ReplaceAll(req.CallbackURL, "{run_id}", "x")); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
	}
	secret := req.CallbackSecret
	if secret == "" {
		secret = s.defaultSecret
	}

	rec, err := s.Store.Create(req.RunID, scenario, req.CallbackURL, secret)
	if err != nil {
		return nil, err
	}
	if req.Start {
		return s.Executor.Start(rec.Run.ID)
	}
	return rec, nil
}

// GetResult returns the result of a completed run
func (s *Service) GetResult(runID string) (*models.Result, error) {
	if runID == "" {
		return nil, ErrRunIDMissing
	}
	rec, ok := s.Store.Get(runID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if rec.Run.Result == nil {
		return nil, fmt.Errorf("%w: %s is %s", ErrResultUnavailable, runID, rec.Run.Status)
	}
	return rec.Run.Result, nil
}

// ErrResultUnavailable is returned for runs that have not completed
var ErrResultUnavailable = errors.New("result not available")

// ParseRunStatus maps a query value onto a run status. Empty means any.
func ParseRunStatus(raw string) (models.RunStatus, error) {
	status := models.RunStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case "", models.RunStatusPending, models.RunStatusRunning, models.RunStatusCompleted,
		models.RunStatusFailed, models.RunStatusCancelled:
		return status, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrBadRequest, raw)
}
