// Command lambda serves the profile API as an AWS Lambda / API Gateway
// proxy function. Netlify functions use the same event shape.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/andesco/igproxy/pkg/profilelib"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
)

var baseHeaders = map[string]string{
	"Content-Type":                 "application/json",
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET, OPTIONS",
	"Access-Control-Allow-Headers": "Content-Type",
}

// LambdaHandler handles API Gateway proxy events.
type LambdaHandler struct {
	svc  *profilelib.Service
	docs profilelib.DocsResponse
}

func NewLambdaHandler(svc *profilelib.Service) *LambdaHandler {
	return &LambdaHandler{
		svc:  svc,
		docs: svc.Fetcher().Config().DocsFor("AWS Lambda"),
	}
}

// Handler is the Lambda entry point.
func (h *LambdaHandler) Handler(ctx context.Context, event events.APIGatewayProxyRequest) (resp events.APIGatewayProxyResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while handling request", "path", event.Path, "panic", r)
			resp = h.respond(http.StatusInternalServerError, profilelib.InternalError(fmt.Errorf("%v", r)))
			err = nil
		}
	}()

	if event.HTTPMethod == http.MethodOptions {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Headers: baseHeaders}, nil
	}
	if event.HTTPMethod != http.MethodGet {
		return h.respond(http.StatusMethodNotAllowed, profilelib.ErrorResponse("Method not allowed")), nil
	}

	path := strings.TrimSuffix(event.Path, "/")
	if i := strings.Index(path, "/user/"); i >= 0 {
		raw := path[i+len("/user/"):]
		if decoded, err := url.PathUnescape(raw); err == nil {
			raw = decoded
		}
		status, body := h.svc.Lookup(ctx, raw)
		return h.respond(status, body), nil
	}

	switch path {
	case "", "/api", "/index", "/api/index", "/.netlify/functions/index":
		return h.respond(http.StatusOK, h.docs), nil
	case "/user", "/api/user", "/.netlify/functions/user":
		status, body := h.svc.Lookup(ctx, event.QueryStringParameters["username"])
		return h.respond(status, body), nil
	}
	return h.respond(http.StatusNotFound, profilelib.ErrorResponse("Not found")), nil
}

func (h *LambdaHandler) respond(status int, body any) events.APIGatewayProxyResponse {
	raw, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		raw, _ = json.Marshal(profilelib.InternalError(err))
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    baseHeaders,
		Body:       string(raw),
	}
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := profilelib.LoadConfig(os.Getenv("CONFIG"))
	if err != nil {
		logger.Error("could not load config", "error", err)
		os.Exit(1)
	}
	fetcher, err := profilelib.NewFetcher(cfg, profilelib.WithLogger(logger))
	if err != nil {
		logger.Error("could not create fetcher", "error", err)
		os.Exit(1)
	}
	backend, err := profilelib.OpenCache(context.Background(), cfg.Cache)
	if err != nil {
		logger.Error("could not open cache", "error", err)
		os.Exit(1)
	}

	handler := NewLambdaHandler(profilelib.NewService(fetcher, backend))
	lambda.Start(handler.Handler)
}
