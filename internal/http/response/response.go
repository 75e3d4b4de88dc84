// Package response содержит единый формат JSON-ответов HTTP-сервера.
package response

// Response — конверт ответа.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Статусы ответа.
const (
	StatusOK    = "OK"
	StatusError = "Error"
)

// OK возвращает успешный ответ.
func OK() Response {
	return Response{Status: StatusOK}
}

// Error возвращает ответ с ошибкой.
func Error(msg string) Response {
	return Response{Status: StatusError, Error: msg}
}
