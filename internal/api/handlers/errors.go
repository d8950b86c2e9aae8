package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"carmarket/api/internal/services"
)

// statusFor maps a service error kind to an HTTP status. ok is false for
// errors that are not service errors.
func statusFor(err error) (status int, ok bool) {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrConflict):
		return http.StatusBadRequest, true
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, true
	case errors.Is(err, services.ErrIllegalTransition), errors.Is(err, services.ErrDuplicate):
		return http.StatusConflict, true
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized, true
	}
	return http.StatusInternalServerError, false
}

// respondError writes {"message": ...}. Unclassified errors are logged and
// reported with the generic fallback message.
func respondError(c *gin.Context, err error, fallback string) {
	status, ok := statusFor(err)
	if !ok {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": fallback})
		return
	}
	message := err.Error()
	var se *services.ServiceError
	if errors.As(err, &se) {
		message = se.Message
	}
	c.JSON(status, gin.H{"message": message})
}

// bindJSON binds the request body to req, answering 400 on failure.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, lowerFirst(fe.Field()))
			}
			c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("Missing or invalid fields: %s", strings.Join(fields, ", "))})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body."})
		return false
	}
	return true
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// pathID parses an ObjectID path parameter, answering 400 on failure.
func pathID(c *gin.Context, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("Invalid %s.", param)})
		return primitive.NilObjectID, false
	}
	return id, true
}

// optionalID parses an optional ObjectID field. Empty means absent.
func optionalID(hex string) (primitive.ObjectID, error) {
	if hex == "" {
		return primitive.NilObjectID, nil
	}
	return primitive.ObjectIDFromHex(hex)
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// parseDate accepts RFC 3339 timestamps or plain dates (UTC midnight).
// Empty means absent.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
