package authmanager

import (
	"net/http"

	dto "github.com/dropDatabas3/authmanager/internal/http/dto/authmanager"
	"github.com/dropDatabas3/authmanager/internal/http/helpers"
	mw "github.com/dropDatabas3/authmanager/internal/http/middlewares"
	svc "github.com/dropDatabas3/authmanager/internal/http/services/authmanager"
)

// TokensController maneja emisión y canje de tokens. Todas las rutas van
// detrás de RequireServiceRole.
type TokensController struct {
	service svc.TokensService
}

func NewTokensController(service svc.TokensService) *TokensController {
	return &TokensController{service: service}
}

// SendVerification maneja POST /send-verification
func (c *TokensController) SendVerification(w http.ResponseWriter, r *http.Request) {
	var req dto.SendVerificationRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	db := mw.MustGetDatabase(r.Context())

	exp, err := c.service.IssueVerificationToken(r.Context(), svc.IssueInput{
		DatabaseID: db.ID, UserID: req.UserID, Email: req.Email, LinkURL: req.VerifyURL,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.SendTokenResponse{Success: true, ExpiresAt: exp})
}

// SendMagicLink maneja POST /send-magic-link
func (c *TokensController) SendMagicLink(w http.ResponseWriter, r *http.Request) {
	var req dto.SendMagicLinkRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	db := mw.MustGetDatabase(r.Context())

	exp, err := c.service.IssueMagicLinkToken(r.Context(), svc.IssueInput{
		DatabaseID: db.ID, UserID: req.UserID, Email: req.Email, LinkURL: req.LoginURL,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.SendTokenResponse{Success: true, ExpiresAt: exp})
}

// VerifyEmail maneja POST /verify-email
func (c *TokensController) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyTokenRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	db := mw.MustGetDatabase(r.Context())

	res, err := c.service.VerifyEmailToken(r.Context(), db.ID, req.Token)
	if err != nil {
		handleError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}

// VerifyMagicLink maneja POST /verify-magic-link
func (c *TokensController) VerifyMagicLink(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyTokenRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	db := mw.MustGetDatabase(r.Context())

	res, err := c.service.VerifyMagicLinkToken(r.Context(), db.ID, req.Token)
	if err != nil {
		handleError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}
