package xhttp

const (
	StatusNotFound            = 404
	StatusRequestTimeout      = 408
	StatusInternalServerError = 500
)

var statusText = map[int]string{
	StatusNotFound:            "Not Found",
	StatusRequestTimeout:      "Request Timeout",
	StatusInternalServerError: "Internal Server Error",
}

// StatusText returns the canonical reason phrase for code, or the empty
// string if the code is unknown.
func StatusText(code int) string {
	return statusText[code]
}
