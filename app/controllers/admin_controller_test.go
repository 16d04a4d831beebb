package controllers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestAdminUploadResourceUnavailableWithoutStorage(t *testing.T) {
	app := fiber.New()
	app.Post("/admin/courses/:uuid/resources", HandleAdminUploadCourseResource)

	req := httptest.NewRequest("POST", "/admin/courses/0b5e7c9a/resources", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode body %q: %v", raw, err)
	}
	assert.Equal(t, "storage_unavailable", body["error"])
}
