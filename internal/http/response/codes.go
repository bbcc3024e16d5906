package response

const (
	CodeOK              = 0
	CodeBadRequest      = 400
	CodeUnauthorized    = 401
	CodeNotFound        = 404
	CodeForbidden       = 403
	CodeTooManyRequests = 429
	CodeInternal        = 500
)
