package models

import "errors"

type ApiResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Kind      ErrorKind   `json:"kind,omitempty"`
	Step      string      `json:"step,omitempty"`
	RequestID interface{} `json:"request_id,omitempty"`
}

func SuccessResponse(data interface{}, message string) ApiResponse {
	return ApiResponse{
		Success: true,
		Data:    data,
		Message: message,
	}
}

func ErrorResponse(err string) ApiResponse {
	return ApiResponse{
		Success: false,
		Error:   err,
	}
}

// AppErrorResponse exposes the kind and failed step of err when it is an AppError.
func AppErrorResponse(err error) ApiResponse {
	res := ErrorResponse(err.Error())
	res.Kind = KindOf(err)
	var appErr *AppError
	if errors.As(err, &appErr) {
		res.Step = appErr.Step
	}
	return res
}
