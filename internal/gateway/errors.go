package gateway

import (
	"net/http"

	"github.com/uri157/exchange-simulator/internal/core"
)

// exchangeError is the Binance-style {code, msg} error body of §6.3.
type exchangeError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// codeFor maps a core.ErrKind to the exchange-compatible error code map of
// §6.3/§7.
func codeFor(kind core.ErrKind) (httpStatus, code int) {
	switch kind {
	case core.ErrInvalidParam:
		return http.StatusBadRequest, -1102
	case core.ErrUnsupportedType:
		return http.StatusBadRequest, -1116
	case core.ErrUnknownOrder:
		return http.StatusBadRequest, -2011
	case core.ErrNoMarketPrice, core.ErrDataUnavailable:
		return http.StatusBadRequest, -1013
	default:
		return http.StatusInternalServerError, -1000
	}
}

func writeExchangeError(w http.ResponseWriter, err error) {
	kind := core.KindOf(err)
	status, code := codeFor(kind)
	writeJSON(w, status, exchangeError{Code: code, Msg: err.Error()})
}
