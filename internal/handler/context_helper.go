package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ayudas-panel/internal/middleware"
	"github.com/noah-isme/ayudas-panel/internal/models"
	"github.com/noah-isme/ayudas-panel/internal/repository"
	appErrors "github.com/noah-isme/ayudas-panel/pkg/errors"
	"github.com/noah-isme/ayudas-panel/pkg/response"
)

func userFromContext(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := repository.ParseID(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identificador inválido"))
		return 0, false
	}
	return id, true
}

func bindError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func toPagination(p models.Pagination) *response.Pagination {
	return &response.Pagination{
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalCount: p.TotalCount,
		TotalPages: p.TotalPages,
		Window:     p.Window,
	}
}
