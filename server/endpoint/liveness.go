package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Liveness confirms the process is able to serve HTTP. It checks nothing
// else; an offline catalog is not a liveness failure.
func Liveness(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive", "service": serviceName})
	}
}
