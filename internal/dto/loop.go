package dto

import "time"

type DecisionResponse struct {
	ID          string    `json:"id,omitempty" example:"dec_4f1c"`
	CycleID     string    `json:"cycle_id" example:"5b8e0f0e-2c1a-4a8b-9c55-0e3c7f0f3d11"`
	CameraID    string    `json:"camera_id" example:"forward"`
	Command     string    `json:"command" example:"align with port"`
	Action      string    `json:"action,omitempty" example:"rotate_cw"`
	Confidence  float64   `json:"confidence" example:"0.82"`
	Outcome     string    `json:"outcome" example:"applied"`
	FailureKind string    `json:"failure_kind,omitempty" example:"parse"`
	Error       string    `json:"error,omitempty"`
	LatencyMs   int64     `json:"latency_ms" example:"240"`
	Late        bool      `json:"late,omitempty" example:"false"`
	DecidedAt   time.Time `json:"decided_at"`
}

type LoopStatusResponse struct {
	Running       bool                        `json:"running" example:"true"`
	State         string                      `json:"state" example:"awaiting_responses"`
	CycleID       string                      `json:"cycle_id,omitempty"`
	Cycles        uint64                      `json:"cycles" example:"120"`
	Skipped       uint64                      `json:"skipped" example:"4"`
	Outstanding   int                         `json:"outstanding" example:"2"`
	Command       string                      `json:"command" example:"align with port"`
	LastCycleAt   *time.Time                  `json:"last_cycle_at,omitempty"`
	LastDecisions map[string]DecisionResponse `json:"last_decisions"`
	OutcomeCounts map[string]int64            `json:"outcome_counts,omitempty"`
}

type CycleRequestResponse struct {
	Queued bool `json:"queued" example:"true"`
}

type DecisionListResponse struct {
	Decisions []DecisionResponse `json:"decisions"`
}
