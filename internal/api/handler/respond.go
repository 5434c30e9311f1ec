package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/omnisec-monitor/internal/model"
	"go.uber.org/zap"
)

// envelope is the body of every successful API response.
type envelope struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data, Timestamp: time.Now().UTC()})
}

// respondError maps client errors to 400 with their message and everything
// else to 500 with msg.
func respondError(c *gin.Context, logger *zap.Logger, err error, msg string) {
	var ia *model.InvalidArgumentError
	if errors.As(err, &ia) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": ia.Error()})
		return
	}
	logger.Error(msg, zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": msg})
}

// intQuery parses an integer query parameter, returning def when absent.
func intQuery(c *gin.Context, name string, def int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.InvalidArgument(name, raw, "must be an integer")
	}
	return n, nil
}
