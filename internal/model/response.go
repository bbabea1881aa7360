package model

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *Meta     `json:"meta,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type VerifyOtpResponse struct {
	Message           string `json:"message"`
	RegistrationToken string `json:"registration_token,omitempty"`
	ResetToken        string `json:"reset_token,omitempty"`
}

type CheckUserExistenceResponse struct {
	Exists bool `json:"exists"`
}
