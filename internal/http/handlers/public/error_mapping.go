package public

import (
	"errors"

	"github.com/pinmart/pinmart/internal/http/response"
	"github.com/pinmart/pinmart/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError maps one service error to an API error response.
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			response.Error(c, rule.code, rule.msg)
			return
		}
	}
	response.Error(c, fallbackCode, fallbackMsg)
}

var checkoutErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidCheckoutInput, code: response.CodeBadRequest, msg: "invalid checkout input"},
	{target: service.ErrBuyerEmailInvalid, code: response.CodeBadRequest, msg: "buyer email invalid"},
	{target: service.ErrCardInsufficient, code: response.CodeConflict, msg: "insufficient stock"},
	{target: service.ErrGatewayUnavailable, code: response.CodeInternal, msg: "payment gateway unavailable"},
	{target: service.ErrIntentStoreFailed, code: response.CodeInternal, msg: "checkout temporarily unavailable"},
}

var orderFetchErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, msg: "order not found"},
	{target: service.ErrOrderFetchFailed, code: response.CodeInternal, msg: "order fetch failed"},
}

var callbackErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, msg: "unknown payment reference"},
	{target: service.ErrIntentExpired, code: response.CodeConflict, msg: "payment window expired"},
	{target: service.ErrGatewayUnavailable, code: response.CodeInternal, msg: "payment gateway unavailable"},
	{target: service.ErrIntentStoreFailed, code: response.CodeInternal, msg: "payment state unavailable"},
	{target: service.ErrOrderFetchFailed, code: response.CodeInternal, msg: "order fetch failed"},
	{target: service.ErrOrderUpdateFailed, code: response.CodeInternal, msg: "order update failed"},
}

func respondCheckoutError(c *gin.Context, err error) {
	var stockErr *service.InsufficientStockError
	if errors.As(err, &stockErr) {
		response.ErrorWithData(c, response.CodeConflict, "insufficient stock", gin.H{
			"card_type": stockErr.CardType,
			"requested": stockErr.Requested,
			"available": stockErr.Available,
		})
		return
	}
	respondWithMappedError(c, err, checkoutErrorRules, response.CodeInternal, "checkout failed")
}

func respondOrderFetchError(c *gin.Context, err error) {
	respondWithMappedError(c, err, orderFetchErrorRules, response.CodeInternal, "order fetch failed")
}

func respondCallbackError(c *gin.Context, err error) {
	respondWithMappedError(c, err, callbackErrorRules, response.CodeInternal, "payment callback failed")
}
