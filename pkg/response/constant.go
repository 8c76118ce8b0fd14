package response

const (
	MessageSuccess = "Success"

	ErrorCodeBadRequest         = 1
	ErrorCodeUnauthorized       = 401
	ErrorCodeServiceUnavailable = 503
)
