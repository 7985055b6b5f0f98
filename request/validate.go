package request

import (
	"fmt"
	"strings"
)

// ValidateRequestID checks an id taken from an approval link.
func ValidateRequestID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("request ID cannot be empty")
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("request ID too long: maximum %d characters", MaxIDLength)
	}
	if strings.ContainsAny(id, " \t\r\n/") {
		return fmt.Errorf("request ID contains invalid characters")
	}
	return nil
}

// Validate checks if the WorkflowRequest is semantically correct.
func (r *WorkflowRequest) Validate() error {
	if err := ValidateRequestID(r.ID); err != nil {
		return err
	}
	if !r.Type.HasApproval() {
		return fmt.Errorf("invalid request type for approval workflow: %q", r.Type)
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("invalid status: %q", r.Status)
	}
	if strings.TrimSpace(r.RequesterName) == "" {
		return fmt.Errorf("requester name cannot be empty")
	}
	if r.HOD != nil {
		if err := r.HOD.Validate(); err != nil {
			return fmt.Errorf("hod decision: %w", err)
		}
	}
	if r.HR != nil {
		if err := r.HR.Validate(); err != nil {
			return fmt.Errorf("hr decision: %w", err)
		}
	}
	if r.CreatedAt.IsZero() {
		return fmt.Errorf("created_at cannot be zero")
	}
	return nil
}

// Validate checks that a decision identifies who made it.
func (d *Decision) Validate() error {
	if d.ApproverID == "" && d.ApproverName == "" {
		return fmt.Errorf("approver id or name is required")
	}
	if len(d.Remarks) > MaxRemarksLength {
		return fmt.Errorf("remarks too long: maximum %d characters", MaxRemarksLength)
	}
	return nil
}

// Validate checks the minimum fields of a joining record.
func (j *JoiningRecord) Validate() error {
	if err := ValidateRequestID(j.ID); err != nil {
		return err
	}
	if strings.TrimSpace(j.FullName) == "" {
		return fmt.Errorf("full name cannot be empty")
	}
	if strings.TrimSpace(j.Department) == "" {
		return fmt.Errorf("department cannot be empty")
	}
	return nil
}
