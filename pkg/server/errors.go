package server

import (
	"encoding/json"
	"errors"
	"net/http"

	sferrors "github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/pkg/appstate"
	"github.com/vango-dev/storefront/pkg/nav"
)

// coded maps package sentinels to registered storefront errors.
func coded(err error) *sferrors.Error {
	var se *sferrors.Error
	if errors.As(err, &se) {
		return se
	}

	var code string
	switch {
	case errors.Is(err, nav.ErrProductNotFound):
		code = sferrors.CodeProductNotFound
	case errors.Is(err, nav.ErrHistoryBlocked):
		code = sferrors.CodeHistoryBlocked
	case errors.Is(err, nav.ErrReentrantNavigation):
		code = sferrors.CodeNavigationBusy
	case errors.Is(err, appstate.ErrUnknownProduct):
		code = sferrors.CodeUnknownProduct
	case errors.Is(err, appstate.ErrInvalidTheme):
		code = sferrors.CodeInvalidTheme
	case errors.Is(err, appstate.ErrNotLoaded):
		code = sferrors.CodeStateNotLoaded
	default:
		code = sferrors.CodeStorageUnavailable
	}
	return sferrors.New(code).Wrap(err)
}

// errorBody is the JSON body of every API error response.
type errorBody struct {
	Error    *sferrors.Error `json:"error"`
	Redirect string          `json:"redirect,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := coded(err)
	status := e.HTTPStatus()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "code", e.Code, "error", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "code", e.Code, "error", err)
	}
	writeJSON(w, status, errorBody{Error: e})
}

func invalidRequest(field, detail string) *sferrors.Error {
	return sferrors.New(sferrors.CodeInvalidRequest).WithField(field).WithDetail(detail)
}

// upgradeError answers a failed websocket handshake with a coded body
// carrying the status chosen by the upgrader.
func (s *Server) upgradeError(w http.ResponseWriter, r *http.Request, status int, reason error) {
	e := sferrors.New(sferrors.CodeUpgradeFailed).WithDetail(reason.Error())
	s.logger.Debug("websocket handshake rejected", "status", status, "remote", r.RemoteAddr, "error", reason)
	writeJSON(w, status, errorBody{Error: e})
}
