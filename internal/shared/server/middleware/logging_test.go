package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"coi-backend/internal/shared/telemetry"
)

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zapcore.InfoLevel)
	telemetry.SetLogger(zap.New(core))
	t.Cleanup(func() { telemetry.SetLogger(nil) })

	router := gin.New()
	router.Use(RequestID(), Logging())
	router.POST("/mark_complete/:filename", func(c *gin.Context) {
		c.Set("filename", c.Param("filename"))
		c.Set("statusTransition", "in_progress->verified")
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/mark_complete/claim1.json", nil)
	req.Header.Set("X-Request-Id", "req-1")
	router.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("request.complete").All()
	if len(entries) != 1 {
		t.Fatalf("expected one request log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	for _, key := range []string{"request_id", "filename", "duration_ms", "status", "status_transition", "route"} {
		if _, ok := fields[key]; !ok {
			t.Fatalf("missing log field: %s", key)
		}
	}
	if fields["request_id"] != "req-1" {
		t.Fatalf("unexpected request_id: %v", fields["request_id"])
	}
	if fields["filename"] != "claim1.json" {
		t.Fatalf("unexpected filename: %v", fields["filename"])
	}
	if fields["status_transition"] != "in_progress->verified" {
		t.Fatalf("unexpected status_transition: %v", fields["status_transition"])
	}
	if fields["route"] != "/mark_complete/:filename" {
		t.Fatalf("unexpected route: %v", fields["route"])
	}
}
