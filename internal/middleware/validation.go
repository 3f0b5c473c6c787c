package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/yigit/thesisflow/internal/app/models/dto"
	"github.com/yigit/thesisflow/internal/pkg/logger"
	"github.com/yigit/thesisflow/internal/pkg/validation"
)

// RegisterValidators installs the custom tags on gin's binding engine.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		logger.Warn().Msg("Binding engine is not go-playground/validator, custom tags unavailable")
		return
	}
	if err := validation.Register(v); err != nil {
		logger.Fatal().Err(err).Msg("Failed to register validation tags")
	}
}

// BindJSON binds and validates the request body into obj. On failure it
// writes a 400 response and returns false.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return false
	}
	return true
}

// ValidateRequest binds the body into a fresh value from newObj and stores it
// under "validatedBody" for the handler.
func ValidateRequest(newObj func() interface{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		obj := newObj()
		if !BindJSON(c, obj) {
			return
		}
		c.Set("validatedBody", obj)
		c.Next()
	}
}
