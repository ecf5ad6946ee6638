package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// OK writes the payload as-is; the API has no envelope on success.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Msg writes a domain failure as {"msg": "..."}.
func Msg(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"msg": msg})
}

type fieldError struct {
	Msg string `json:"msg"`
}

// Validation writes malformed-input failures as {"errors":[{"msg":"..."}]}.
func Validation(c *gin.Context, msgs ...string) {
	errs := make([]fieldError, 0, len(msgs))
	for _, m := range msgs {
		errs = append(errs, fieldError{Msg: m})
	}
	c.JSON(http.StatusBadRequest, gin.H{"errors": errs})
}

func InternalError(c *gin.Context) {
	Msg(c, http.StatusInternalServerError, "Internal server error")
}
