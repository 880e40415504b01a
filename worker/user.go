//go:build js && wasm

package main

import (
	"context"
	"syscall/js"

	"github.com/andesco/igproxy/pkg/profilelib"
)

// Version for Cloudflare Workers deployment
var version = "workers-2.0"

func userHandler(svc *profilelib.Service, request js.Value, raw string) js.Value {
	status, resp := svc.Lookup(context.Background(), raw)
	if resp.Success {
		resp.Edge = edgeLocation(request)
	}
	return createJSONResponse(status, resp)
}

func docsHandler(svc *profilelib.Service) js.Value {
	docs := svc.Fetcher().Config().DocsFor("Cloudflare Workers")
	if docs.Version == "" {
		docs.Version = version
	}
	return createJSONResponse(200, docs)
}

// edgeLocation reads the Cloudflare colo serving this request.
func edgeLocation(request js.Value) string {
	cf := request.Get("cf")
	if cf.IsUndefined() || cf.IsNull() {
		return "unknown"
	}
	colo := cf.Get("colo")
	if colo.Type() != js.TypeString {
		return "unknown"
	}
	return colo.String()
}
