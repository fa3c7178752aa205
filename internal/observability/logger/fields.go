package logger

import "go.uber.org/zap"

// HTTP

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field { return zap.String("method", v) }
func Path(v string) zap.Field { return zap.String("path", v) }
func Status(v int) zap.Field { return zap.Int("status", v) }
func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }
func Bytes(v int) zap.Field { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }

// Dominio

// DatabaseID identifica al tenant (connected database) autenticado.
func DatabaseID(v string) zap.Field { return zap.String("database_id", v) }

// ExternalUserID es el id opaco del usuario en la base del tenant.
func ExternalUserID(v string) zap.Field { return zap.String("external_user_id", v) }

func TokenType(v string) zap.Field { return zap.String("token_type", v) }
func TokenID(v string) zap.Field { return zap.String("token_id", v) }

// Email: cuidado en prod, preferir Debug.
func Email(v string) zap.Field { return zap.String("email", v) }

func IP(v string) zap.Field { return zap.String("ip", v) }

// Sistema

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field { return zap.String("op", v) }
func Layer(v string) zap.Field { return zap.String("layer", v) }
func Err(err error) zap.Field { return zap.Error(err) }

func String(k, v string) zap.Field { return zap.String(k, v) }
func Int(k string, v int) zap.Field { return zap.Int(k, v) }
func Bool(k string, v bool) zap.Field { return zap.Bool(k, v) }
func Any(k string, v any) zap.Field { return zap.Any(k, v) }
