package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/olympiad-backend/internal/model"
	"github.com/stemsi/olympiad-backend/internal/response"
	"github.com/stemsi/olympiad-backend/internal/service"
)

// RequireCapability checks that the caller may perform action on the resource
// whose id is in the named path parameter.
func RequireCapability(authorizer *service.Authorizer, action model.Action, kind model.ResourceKind, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		id, err := strconv.ParseInt(c.Param(param), 10, 64)
		if err != nil || id <= 0 {
			response.AbortFail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}

		err = authorizer.Authorize(c.Request.Context(), claims.Actor(), action, model.Resource{Kind: kind, ID: id})
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, service.ErrNotFound):
			response.AbortFail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrForbidden):
			if claims.TokenType == service.TokenTypeParticipant {
				response.AbortFail(c, http.StatusForbidden, response.ErrNotEnrolled)
				return
			}
			response.AbortFail(c, http.StatusForbidden, response.ErrForbidden)
		default:
			_ = c.Error(err)
			response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
		}
	}
}
