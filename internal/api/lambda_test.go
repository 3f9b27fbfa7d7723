package api

import (
	"context"
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/RichardoC/firmsite-copilot/internal/config"
)

func TestHandleAPIGateway(t *testing.T) {
	stub := &stubCopilot{}
	h := NewHandler(keyedConfig(), stub, nil, zaptest.NewLogger(t))

	body := `{"messages":[{"role":"user","content":"hola"}]}`
	resp, err := h.HandleAPIGateway(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:      http.MethodPost,
		Path:            "/api/copilot",
		Headers:         map[string]string{"Content-Type": "application/json"},
		Body:            base64.StdEncoding.EncodeToString([]byte(body)),
		IsBase64Encoded: true,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"content":"ok","toolCalls":[]}`, resp.Body)
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])
	require.Len(t, stub.got, 1)
	assert.Equal(t, "hola", stub.got[0].Text())
}

func TestHandleAPIGateway_PreflightAndErrors(t *testing.T) {
	h := NewHandler(config.Default(), nil, nil, zaptest.NewLogger(t))

	resp, err := h.HandleAPIGateway(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodOptions})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, resp.Body)
	assert.Equal(t, "POST, OPTIONS", resp.Headers["Access-Control-Allow-Methods"])

	resp, err = h.HandleAPIGateway(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost, Body: "{}"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, resp.Body, MissingKeyMessage)

	_, err = h.HandleAPIGateway(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost, Body: "%%%", IsBase64Encoded: true})
	assert.Error(t, err)
}
