//go:build js && wasm

package main

import (
	"net/http"
	"syscall/js"

	"github.com/andesco/igproxy/pkg/profilelib"
)

func configHandler(svc *profilelib.Service) js.Value {
	cfg := svc.Fetcher().Config()

	// Check if config exposure is disabled
	if !cfg.ExposeConfig {
		return createJSONResponse(http.StatusForbidden, profilelib.ErrorResponse("Config exposure disabled"))
	}

	body, err := cfg.YAML()
	if err != nil {
		return createJSONResponse(http.StatusInternalServerError, profilelib.InternalError(err))
	}
	return createResponse(http.StatusOK, body, "application/x-yaml")
}
