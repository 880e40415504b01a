//go:build js && wasm

package main

import (
	"fmt"
	"net/http"
	"strings"
	"syscall/js"

	"github.com/andesco/igproxy/pkg/profilelib"
)

func main() {
	fmt.Println("Go main() function starting...")

	// Export the fetch function to JavaScript
	js.Global().Set("goFetch", js.FuncOf(fetchHandler))

	fmt.Println("Go WASM module loaded and ready")

	// Keep the program running
	select {}
}

func fetchHandler(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return js.Global().Get("Promise").Call("reject", js.ValueOf("Expected 3 arguments: request, env, ctx"))
	}

	request := args[0]
	env := args[1]
	ctx := args[2]

	// Return a Promise that resolves with the response
	return js.Global().Get("Promise").New(js.FuncOf(func(this js.Value, promiseArgs []js.Value) interface{} {
		resolve := promiseArgs[0]

		go func() {
			defer func() {
				if r := recover(); r != nil {
					resolve.Invoke(createJSONResponse(http.StatusInternalServerError,
						profilelib.InternalError(fmt.Errorf("%v", r))))
				}
			}()

			resolve.Invoke(handleRequest(request, env, ctx))
		}()

		return nil
	}))
}

func handleRequest(request, env, ctx js.Value) js.Value {
	method := request.Get("method").String()
	urlObj := js.Global().Get("URL").New(request.Get("url").String())
	path := strings.TrimSuffix(urlObj.Get("pathname").String(), "/")

	if method == http.MethodOptions {
		return createResponse(http.StatusOK, nil, "")
	}
	if method != http.MethodGet {
		return createJSONResponse(http.StatusMethodNotAllowed, profilelib.ErrorResponse("Method not allowed"))
	}

	svc, err := initService(env)
	if err != nil {
		return createJSONResponse(http.StatusInternalServerError, profilelib.InternalError(err))
	}

	// Route to handlers
	switch {
	case path == "" || path == "/api":
		return docsHandler(svc)
	case path == "/config":
		return configHandler(svc)
	case path == "/api/user":
		return userHandler(svc, request, queryParam(urlObj, "username"))
	case strings.HasPrefix(path, "/api/user/"):
		return userHandler(svc, request, decodePathSegment(strings.TrimPrefix(path, "/api/user/")))
	}
	return createJSONResponse(http.StatusNotFound, profilelib.ErrorResponse("Not found"))
}

func queryParam(urlObj js.Value, key string) string {
	v := urlObj.Get("searchParams").Call("get", key)
	if v.IsNull() || v.IsUndefined() {
		return ""
	}
	return v.String()
}

func decodePathSegment(s string) string {
	decoded := js.Global().Call("decodeURIComponent", s)
	if decoded.Type() != js.TypeString {
		return s
	}
	return decoded.String()
}
