package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/artcache/errors"
)

// DataResponse is the standard success envelope.
type DataResponse struct {
	Data any   `json:"data"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta carries pagination metadata.
type Meta struct {
	Page       int  `json:"page,omitempty"`
	PageSize   int  `json:"pageSize,omitempty"`
	Total      int  `json:"total,omitempty"`
	TotalPages int  `json:"totalPages,omitempty"`
	HasMore    bool `json:"hasMore"`
}

// RespondWithError writes err as an error envelope. Anything that is not
// already an *errors.AppError is reported as UNKNOWN.
func RespondWithError(c *gin.Context, err error) {
	appErr := errors.FromError(err)
	_ = c.Error(appErr)
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	c.JSON(status, appErr.ToResponse())
}

// RespondOK sends a 200 response wrapping data.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}

// RespondOKWithMeta sends a 200 response with data and metadata.
func RespondOKWithMeta(c *gin.Context, data any, meta *Meta) {
	c.JSON(http.StatusOK, DataResponse{Data: data, Meta: meta})
}

// RespondAccepted sends a 202 response wrapping data.
func RespondAccepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, DataResponse{Data: data})
}

// RespondNoContent sends a 204 with no body.
func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
