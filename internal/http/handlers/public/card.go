package public

import (
	"github.com/pinmart/pinmart/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetCardTypes returns the catalog: available count, unit price and face
// value per card type.
func (h *Handler) GetCardTypes(c *gin.Context) {
	summaries, err := h.CardService.TypeSummaries()
	if err != nil {
		response.Error(c, response.CodeInternal, "catalog unavailable")
		return
	}
	response.Success(c, gin.H{"types": summaries})
}
