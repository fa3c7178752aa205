package repository

import "errors"

var (
	// ErrNotFound indica que el recurso solicitado no existe.
	ErrNotFound = errors.New("not found")

	// ErrConflict indica un duplicado o una violación de constraint.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indica datos de entrada inválidos.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAmbiguousCredential: más de una base activa comparte la credencial.
	ErrAmbiguousCredential = errors.New("credential matches more than one active database")

	// ErrTokenAlreadyUsed: el update condicional de MarkUsed no afectó filas.
	ErrTokenAlreadyUsed = errors.New("token already used")
)

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
