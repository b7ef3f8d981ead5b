package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"metutor/internal/service/ai"
	"metutor/internal/service/assistant"
	"metutor/internal/service/calculator"
	"metutor/internal/service/extract"
	"metutor/internal/service/upload"
)

// validationErrors are the caller mistakes answered with 400.
var validationErrors = []error{
	assistant.ErrInvalidInput,
	upload.ErrNoFile,
	upload.ErrFileTooLarge,
	upload.ErrInvalidFileType,
	extract.ErrUnsupportedType,
}

// respondError logs err once and writes the JSON error body for it.
func respondError(c *gin.Context, err error, generic string) {
	route := c.FullPath()

	if errors.Is(err, calculator.ErrInvalidExpression) {
		log.Info().Err(err).Str("route", route).Msg("rejected expression")
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid mathematical expression",
			"details": err.Error(),
		})
		return
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			log.Info().Err(err).Str("route", route).Msg("rejected request")
			c.JSON(http.StatusBadRequest, gin.H{"error": target.Error(), "details": err.Error()})
			return
		}
	}

	log.Error().Err(err).Str("route", route).Bool("upstream", errors.Is(err, ai.ErrUpstream)).Msg(generic)
	// upload failures carry their cause back to the client
	if strings.HasPrefix(route, "/api/upload/file") {
		c.JSON(http.StatusInternalServerError, gin.H{"error": generic, "details": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": generic})
}

// bind decodes the JSON body and answers 400 when it is unusable.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		log.Info().Err(err).Str("route", c.FullPath()).Msg("invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return false
	}
	return true
}

func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request body"
	}
	fe := verrs[0]
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min", "max":
		return fmt.Sprintf("%s must be between 1 and %d", field, assistant.MaxProblemCount)
	}
	return fmt.Sprintf("%s is invalid", field)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// formFileError turns multipart parsing failures into upload sentinels.
func formFileError(err error) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
		return fmt.Errorf("%w: %v", upload.ErrFileTooLarge, err)
	}
	if errors.Is(err, http.ErrMissingFile) {
		return upload.ErrNoFile
	}
	return fmt.Errorf("%w: %v", upload.ErrNoFile, err)
}
