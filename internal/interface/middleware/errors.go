package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/scopeguard/internal/domain/apperror"
	"github.com/oksasatya/scopeguard/pkg/response"
)

// AbortWithError logs err with its server-side reason and writes the client
// view of it: status, business code and message only.
func AbortWithError(c *gin.Context, log *logrus.Logger, err error) {
	e := apperror.From(err)
	_ = c.Error(err)

	if log != nil {
		entry := log.WithFields(logrus.Fields{
			"status":     e.HTTPCode(),
			"code":       e.ErrorCode(),
			"reason":     e.Reason(),
			"request_id": c.GetString(CtxRequestIDKey),
			"method":     c.Request.Method,
			"path":       normalizePath(c),
		})
		if sub := c.GetString(CtxSubjectKey); sub != "" {
			entry = entry.WithField("subject", sub)
		}
		if e.HTTPCode() >= http.StatusInternalServerError {
			entry.Error("request failed")
		} else {
			entry.Warn("request rejected")
		}
	}

	switch e.HTTPCode() {
	case http.StatusUnauthorized:
		c.Header("WWW-Authenticate", "Bearer")
	case http.StatusForbidden:
		c.Header("WWW-Authenticate", `Bearer error="insufficient_scope"`)
	}

	response.Abort(c, response.Error[any](c, e.HTTPCode(), e.Message(),
		response.ErrorBody{Code: e.ErrorCode(), Details: e.Details()}))
}
