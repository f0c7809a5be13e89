package types

// SuccessEnvelope is the wire shape for successful API responses. Every
// response carries the success flag so the storefront can branch without
// inspecting status codes.
type SuccessEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

// ErrorEnvelope is the wire shape for failed API responses.
type ErrorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
