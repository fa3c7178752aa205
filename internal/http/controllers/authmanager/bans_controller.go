package authmanager

import (
	"net/http"

	"github.com/dropDatabas3/authmanager/internal/http/helpers"
	mw "github.com/dropDatabas3/authmanager/internal/http/middlewares"
	svc "github.com/dropDatabas3/authmanager/internal/http/services/authmanager"
)

type BansController struct {
	service svc.BansService
}

func NewBansController(service svc.BansService) *BansController {
	return &BansController{service: service}
}

// CheckBan maneja GET /check-ban?userId=
func (c *BansController) CheckBan(w http.ResponseWriter, r *http.Request) {
	db := mw.MustGetDatabase(r.Context())
	res, err := c.service.Check(r.Context(), db.ID, r.URL.Query().Get("userId"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}
