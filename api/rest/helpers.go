package rest

import (
	"errors"
	"net/http"
	"strings"

	"github.com/asakura-games/guildserver/guild"
	"github.com/gin-gonic/gin"
)

// respondErr maps a domain error onto the HTTP status space. Conflicts
// surface as 409 only when the store's internal retries were exhausted.
func respondErr(c *gin.Context, err error) {
	var status int
	switch guild.KindOf(err) {
	case guild.KindNotFound:
		status = http.StatusNotFound
	case guild.KindPermissionDenied:
		status = http.StatusForbidden
	case guild.KindPreconditionFailed:
		status = http.StatusBadRequest
	case guild.KindConflict:
		status = http.StatusConflict
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	var ge *guild.Error
	msg := err.Error()
	if errors.As(err, &ge) {
		msg = ge.Reason
	}
	c.JSON(status, gin.H{"error": msg})
}

// isUniqueViolation detects duplicate-key errors from common database drivers.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "already exists")
}
