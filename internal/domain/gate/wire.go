package gate

// Response is an untyped submit or execute response body. No field is
// guaranteed to be present.
type Response = map[string]any

// SubmitRequest is the body of POST /gate/submit.
type SubmitRequest struct {
	// UserRequest is the natural-language request under review.
	UserRequest string `json:"user_request"`
	// Context is optional structured context sent alongside the request.
	// A nil map is omitted; an empty object is sent as {}.
	Context map[string]any `json:"context,omitzero"`
}

// ExecuteRequest is the body of POST /gate/execute.
type ExecuteRequest struct {
	// PermitID identifies the permit authorizing the action.
	PermitID string `json:"permit_id"`
	// Action describes the action to execute.
	Action map[string]any `json:"action"`
}
