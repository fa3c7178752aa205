package errors

import (
	"encoding/json"
	"net/http"
)

// WriteError escribe cualquier error como {"error": ..., "code": ...}.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(appErr)
}
