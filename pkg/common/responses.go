package common

type SuccessResponse struct {
	Status  int         `json:"status"`
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

func NewSuccessResponse(status int, data interface{}, message string) SuccessResponse {
	return SuccessResponse{
		Status:  status,
		Success: true,
		Message: message,
		Data:    data,
	}
}

func NewErrorResponse(message string, status int) ErrorResponse {
	return ErrorResponse{
		Status:     "error",
		StatusCode: status,
		Message:    message,
	}
}

// NewErrorResponseFrom maps a classified error onto its response body.
func NewErrorResponseFrom(err error) ErrorResponse {
	return NewErrorResponse(Message(err), HTTPStatus(err))
}
