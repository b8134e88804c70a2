package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	cfgpkg "github.com/tcmtongue/server/pkg/config"
	"github.com/tcmtongue/server/pkg/response"
)

const HeaderAdminKey = "X-Admin-Key"

// AdminKey guards the admin group. An empty configured key rejects everything.
func AdminKey(cfg *cfgpkg.Config) gin.HandlerFunc {
	key := []byte(cfg.Admin.APIKey)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(HeaderAdminKey))
		if len(key) == 0 || subtle.ConstantTimeCompare(got, key) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, "invalid admin key"))
			return
		}
		c.Next()
	}
}
