// Package admin contiene los controllers de /admin/*.
package admin

import svc "github.com/dropDatabas3/authmanager/internal/http/services/admin"

type Controllers struct {
	Session   *SessionController
	Databases *DatabasesController
}

func NewControllers(s svc.Services, cookie CookieConfig) *Controllers {
	return &Controllers{
		Session:   NewSessionController(s.Session, cookie),
		Databases: NewDatabasesController(s.Databases),
	}
}
