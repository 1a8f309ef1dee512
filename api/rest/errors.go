package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/questlogrpg/questlog/server/apperr"
)

// writeError renders a service error with its stable kind and any
// structured details it carries.
func writeError(c *gin.Context, err error) {
	body := gin.H{"error": apperr.MessageOf(err)}
	if details := apperr.DetailsOf(err); len(details) > 0 {
		body["details"] = details
	}
	c.JSON(apperr.HTTPStatus(err), body)
}
