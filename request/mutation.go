package request

import "time"

// Log action labels written to hod_action / hr_action.
const (
	LogActionApproved = "Approved"
	LogActionRejected = "Rejected"
)

// Mutation is the change set applied to the primary request record.
// A nil decision leaves the stored field untouched.
type Mutation struct {
	Status    Status
	HOD       *Decision
	HR        *Decision
	UpdatedAt time.Time
}

// Apply writes the mutation onto req in place.
func (m Mutation) Apply(req *WorkflowRequest) {
	req.Status = m.Status
	if m.HOD != nil {
		hod := *m.HOD
		req.HOD = &hod
	}
	if m.HR != nil {
		hr := *m.HR
		req.HR = &hr
	}
	if !m.UpdatedAt.IsZero() {
		req.UpdatedAt = m.UpdatedAt
	}
}

// LogDecision mirrors a Decision in the log table, plus the action label.
type LogDecision struct {
	Action       string    `json:"action"`
	ActedAt      time.Time `json:"acted_at"`
	Remarks      string    `json:"remarks"`
	ApproverID   string    `json:"approver_id"`
	ApproverName string    `json:"approver_name"`
}

// LogMutation is the change set applied to the request's log row.
type LogMutation struct {
	Status    Status
	UpdatedAt time.Time
	HOD       *LogDecision
	HR        *LogDecision
}

// LogEntry is the single audit row kept per (RequestID, RequestType).
type LogEntry struct {
	RequestID   string       `json:"request_id"`
	RequestType RequestType  `json:"request_type"`
	Status      Status       `json:"status"`
	UpdatedAt   time.Time    `json:"updated_at"`
	HOD         *LogDecision `json:"hod,omitempty"`
	HR          *LogDecision `json:"hr,omitempty"`
}

// Apply writes the mutation onto entry in place.
func (m LogMutation) Apply(entry *LogEntry) {
	entry.Status = m.Status
	entry.UpdatedAt = m.UpdatedAt
	if m.HOD != nil {
		hod := *m.HOD
		entry.HOD = &hod
	}
	if m.HR != nil {
		hr := *m.HR
		entry.HR = &hr
	}
}
