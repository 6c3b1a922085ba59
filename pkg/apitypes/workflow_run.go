package apitypes

import (
	"encoding/json"
	"time"
)

// RunStatus is the server-reported state of a workflow run. Values outside the
// known set are kept verbatim.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "QUEUED"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
)

// IsPending reports whether the run may still change state.
func (s RunStatus) IsPending() bool {
	return s == RunStatusQueued || s == RunStatusRunning
}

func (s RunStatus) IsFailed() bool {
	return s == RunStatusFailed
}

func (s RunStatus) String() string {
	return string(s)
}

// WorkflowRun is a snapshot of a run as returned by the API. Raw keeps the
// undecoded body so fields this type does not model are not lost.
type WorkflowRun struct {
	ID        string          `json:"id"`
	Status    RunStatus       `json:"status"`
	CreatedAt *time.Time      `json:"createdAt,omitempty"`
	StartedAt *time.Time      `json:"startedAt,omitempty"`
	EndedAt   *time.Time      `json:"endedAt,omitempty"`
	Logs      string          `json:"logs,omitempty"`
	ErrorLogs string          `json:"errorLogs,omitempty"`
	Payload   string          `json:"payload,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

type workflowRunAlias WorkflowRun

// wireRun shadows the fields the API is loose about.
type wireRun struct {
	workflowRunAlias
	CreatedAt json.RawMessage `json:"createdAt"`
	StartedAt json.RawMessage `json:"startedAt"`
	EndedAt   json.RawMessage `json:"endedAt"`
	Logs      json.RawMessage `json:"logs"`
	ErrorLogs json.RawMessage `json:"errorLogs"`
	Payload   json.RawMessage `json:"payload"`
}

var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}

// UnmarshalJSON keeps a copy of the raw document in Raw. Timestamps that do
// not parse are left nil and non-string text fields keep their JSON text.
func (r *WorkflowRun) UnmarshalJSON(data []byte) error {
	var wire wireRun
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*r = WorkflowRun(wire.workflowRunAlias)
	r.CreatedAt = parseTimestamp(wire.CreatedAt)
	r.StartedAt = parseTimestamp(wire.StartedAt)
	r.EndedAt = parseTimestamp(wire.EndedAt)
	r.Logs = looseString(wire.Logs)
	r.ErrorLogs = looseString(wire.ErrorLogs)
	r.Payload = looseString(wire.Payload)
	r.Raw = append(json.RawMessage(nil), data...)
	return nil
}

func parseTimestamp(raw json.RawMessage) *time.Time {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, text); err == nil {
				return &ts
			}
		}
		return nil
	}
	var millis int64
	if err := json.Unmarshal(raw, &millis); err == nil {
		ts := time.UnixMilli(millis).UTC()
		return &ts
	}
	return nil
}

func looseString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	return string(raw)
}

// MarshalJSON returns Raw when present so a snapshot round-trips unchanged.
// An id or status set after decoding is written over the raw document.
func (r WorkflowRun) MarshalJSON() ([]byte, error) {
	if len(r.Raw) == 0 {
		return json.Marshal(workflowRunAlias(r))
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(r.Raw, &doc); err != nil {
		return nil, err
	}
	if looseString(doc["id"]) == r.ID && RunStatus(looseString(doc["status"])) == r.Status {
		return r.Raw, nil
	}
	id, err := json.Marshal(r.ID)
	if err != nil {
		return nil, err
	}
	status, err := json.Marshal(r.Status)
	if err != nil {
		return nil, err
	}
	doc["id"] = id
	doc["status"] = status
	return json.Marshal(doc)
}

// RunWorkflowRequest is the body of POST /runWorkflow.
type RunWorkflowRequest struct {
	ID    string `json:"id"`
	Input any    `json:"input"`
}
