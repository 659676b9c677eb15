package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zeu5/pricing-rl/buybox"
	"github.com/zeu5/pricing-rl/market"
)

var (
	ErrSessionNotFound = errors.New("market session not found")
	ErrUnsupported     = errors.New("operation not supported by this market")
	ErrInvalidRequest  = errors.New("invalid request")
)

// errorStatus maps an error to the HTTP status and the error code of the response
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, market.ErrInvalidParameter):
		return http.StatusBadRequest, "INVALID_PARAMETER"
	case errors.Is(err, market.ErrIndexOutOfRange):
		return http.StatusBadRequest, "INDEX_OUT_OF_RANGE"
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, ErrUnsupported):
		return http.StatusBadRequest, "UNSUPPORTED"
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, buybox.ErrInvalidFeatures), errors.Is(err, buybox.ErrInvalidPrediction):
		return http.StatusBadGateway, "ORACLE_ERROR"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

func writeError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	c.JSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: err.Error(),
		},
	})
}
