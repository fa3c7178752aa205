// Package authmanager contiene los controllers de la API de tenants.
package authmanager

import svc "github.com/dropDatabas3/authmanager/internal/http/services/authmanager"

type Controllers struct {
	Tokens *TokensController
	Bans   *BansController
}

func NewControllers(s svc.Services) *Controllers {
	return &Controllers{
		Tokens: NewTokensController(s.Tokens),
		Bans:   NewBansController(s.Bans),
	}
}
