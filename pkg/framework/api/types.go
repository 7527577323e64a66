package api

import (
	"time"

	"github.com/garunski/cartridge-fixture/pkg/framework/cartridge"
	"github.com/garunski/cartridge-fixture/pkg/framework/reset"
)

type HealthStatus struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version,omitempty"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentStatus `json:"components,omitempty"`
}

type ComponentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ResetRequest optionally overrides the configured candidates for one reset.
type ResetRequest struct {
	Candidates []cartridge.Identity `json:"candidates,omitempty"`
}

type CartridgeListResponse struct {
	Cartridges []cartridge.Identity `json:"cartridges"`
}

type ReloadResponse struct {
	Message    string `json:"message"`
	Cartridges int    `json:"cartridges"`
}

// ResetStatus describes the reset in progress or the last one that finished.
type ResetStatus struct {
	Running  bool          `json:"running"`
	Finished *time.Time    `json:"finished,omitempty"`
	Result   *reset.Result `json:"result,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// ScenarioRequest carries the tags of the scenario a test runner is about to
// start or has just finished.
type ScenarioRequest struct {
	Tags []string `json:"tags"`
}

type ScenarioResponse struct {
	Phase   string        `json:"phase"`
	Skipped bool          `json:"skipped"`
	Result  *reset.Result `json:"result,omitempty"`
}
