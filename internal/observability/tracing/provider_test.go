package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func TestGinMiddleware_SpansRecordWithRegisteredProvider(t *testing.T) {
	gin.SetMode(gin.TestMode)

	provider := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	otel.SetTracerProvider(provider)

	var span trace.Span
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		span = trace.SpanFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, span)
	assert.True(t, span.IsRecording())
	assert.True(t, span.SpanContext().IsValid())
}

func TestNewProvider_DisabledRegistersNoop(t *testing.T) {
	provider, err := NewProvider(nil, Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, provider, otel.GetTracerProvider())

	_, span := provider.Tracer("netlift/http").Start(context.Background(), "op")
	defer span.End()
	assert.False(t, span.IsRecording())
}
