package middlewares

import (
	"context"

	"github.com/dropDatabas3/authmanager/internal/domain/repository"
)

type ctxKey string

const (
	// ctxDatabaseKey guarda la ConnectedDatabase autenticada por el gate
	ctxDatabaseKey ctxKey = "database"
	// ctxAdminKey guarda el email del operador con sesión válida
	ctxAdminKey ctxKey = "admin"
	// ctxRequestIDKey guarda el request ID
	ctxRequestIDKey ctxKey = "request_id"
)

// WithDatabase inyecta la base autenticada en el contexto
func WithDatabase(ctx context.Context, db *repository.ConnectedDatabase) context.Context {
	return context.WithValue(ctx, ctxDatabaseKey, db)
}

// WithAdmin inyecta el email del operador en el contexto
func WithAdmin(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, ctxAdminKey, email)
}

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetDatabase obtiene la base autenticada del contexto.
// Retorna nil si RequireServiceRole no se aplicó.
func GetDatabase(ctx context.Context) *repository.ConnectedDatabase {
	if v, ok := ctx.Value(ctxDatabaseKey).(*repository.ConnectedDatabase); ok {
		return v
	}
	return nil
}

// MustGetDatabase obtiene la base o hace panic.
// Usar solo en rutas donde RequireServiceRole SIEMPRE se aplica.
func MustGetDatabase(ctx context.Context) *repository.ConnectedDatabase {
	db := GetDatabase(ctx)
	if db == nil {
		panic("middlewares: no database in context")
	}
	return db
}

// GetAdmin retorna el email del operador o "".
func GetAdmin(ctx context.Context) string {
	s, _ := ctx.Value(ctxAdminKey).(string)
	return s
}

// GetRequestID retorna el request ID o "".
func GetRequestID(ctx context.Context) string {
	s, _ := ctx.Value(ctxRequestIDKey).(string)
	return s
}
