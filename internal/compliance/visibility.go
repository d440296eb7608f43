package compliance

// VisibleHistory hides rejected attempts for any request type that has an
// approved request. Order is preserved and the input is not modified.
func VisibleHistory(requests []ComplianceRequest) []ComplianceRequest {
	approved := make(map[RequestType]bool)
	for _, r := range requests {
		if r.Status == StatusApproved {
			approved[r.RequestType] = true
		}
	}

	visible := make([]ComplianceRequest, 0, len(requests))
	for _, r := range requests {
		if r.Status == StatusRejected && approved[r.RequestType] {
			continue
		}
		visible = append(visible, r)
	}
	return visible
}

// TypeStatus is the current state of one document type for a user. Status
// is empty when nothing has been submitted.
type TypeStatus struct {
	RequestType RequestType        `json:"request_type"`
	Status      Status             `json:"status,omitempty"`
	Latest      *ComplianceRequest `json:"latest,omitempty"`
	CanSubmit   bool               `json:"can_submit"`
	Rejections  int                `json:"rejections"`
}

// Summarize reports the current status per document type: the open request
// if there is one, else the newest rejection. Requests must be ordered newest first.
func Summarize(requests []ComplianceRequest) []TypeStatus {
	summary := make([]TypeStatus, 0, len(RequestTypes))
	for _, t := range RequestTypes {
		ts := TypeStatus{RequestType: t}
		for _, r := range requests {
			if r.RequestType != t {
				continue
			}
			if r.Status == StatusRejected {
				ts.Rejections++
			}
			if r.Status != StatusRejected || ts.Latest == nil {
				latest := r
				ts.Latest = &latest
				ts.Status = r.Status
			}
		}
		ts.CanSubmit = ts.Status != StatusPending && ts.Status != StatusApproved
		summary = append(summary, ts)
	}
	return summary
}
