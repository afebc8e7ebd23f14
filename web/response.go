// Package web holds the response helpers shared by the status handlers.
package web

import (
	"encoding/json"
	"errors"
	"net/http"
)

const ContentTypeJSON = "application/json"

// Error is an error with a known HTTP status.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e Error) Error() string {
	return e.Message
}

// NewError builds an Error whose message is the standard status text.
func NewError(code int) Error {
	return Error{Code: code, Message: http.StatusText(code)}
}

// RespondJSON to an HTTP request, setting the status code and body if any.
func RespondJSON(w http.ResponseWriter, statusCode int, data any) error {
	if statusCode == http.StatusNoContent {
		w.WriteHeader(statusCode)
		return nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(statusCode)

	if _, err = w.Write(jsonData); err != nil {
		return err
	}

	return nil
}

// RespondError writes err as JSON. An Error keeps its own code; any other
// error becomes a 500 whose message is hidden from the client.
func RespondError(w http.ResponseWriter, err error) error {
	if webErr, ok := errors.AsType[Error](err); ok {
		return RespondJSON(w, webErr.Code, webErr)
	}

	return RespondJSON(w, http.StatusInternalServerError, NewError(http.StatusInternalServerError))
}
