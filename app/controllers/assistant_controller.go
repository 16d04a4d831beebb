package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/aicser/aicser-studio/internal/pkg/assistant"
	"github.com/aicser/aicser-studio/internal/pkg/search"
	"github.com/aicser/aicser-studio/internal/pkg/usercontext"
)

var (
	assistantSvc *assistant.Service
	searchClient search.Searcher
)

// SetupAssistant injects the assistant service. When it stays nil the chat
// endpoint reports the feature as unavailable.
func SetupAssistant(svc *assistant.Service) {
	assistantSvc = svc
}

// SetupSearch injects the web search client used by HandleWebSearch.
func SetupSearch(s search.Searcher) {
	searchClient = s
}

type assistantChatRequest struct {
	CourseUUID string              `json:"course_uuid"`
	Messages   []assistant.Message `json:"messages"`
}

// HandleAssistantChat answers the latest user message in the posted
// conversation, using the earlier messages as context.
func HandleAssistantChat(c *fiber.Ctx) error {
	if assistantSvc == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "assistant_unavailable", "The AI assistant is not configured")
	}

	var req assistantChatRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "Request body must be JSON")
	}
	if len(req.Messages) == 0 {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "messages must not be empty")
	}

	last := req.Messages[len(req.Messages)-1]
	if last.Role != "user" || strings.TrimSpace(last.Content) == "" {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "The last message must be a non-empty user message")
	}

	userCtx := usercontext.GetUserContext(c)
	answer, err := assistantSvc.Chat(c.Context(), assistant.ChatInput{
		UserID:     userCtx.UserID,
		CourseUUID: strings.TrimSpace(req.CourseUUID),
		History:    req.Messages[:len(req.Messages)-1],
		Question:   last.Content,
	})
	if err != nil {
		fiberlog.Errorf("assistant chat for user %d failed: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "assistant_failed", "The assistant could not answer")
	}

	return c.JSON(fiber.Map{"response": answer})
}

type webSearchRequest struct {
	Query string `json:"query"`
	Num   int    `json:"num"`
}

// HandleWebSearch proxies a web search so the browser never sees the API key.
func HandleWebSearch(c *fiber.Ctx) error {
	if searchClient == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "search_unavailable", "Web search is not configured")
	}

	var req webSearchRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "Request body must be JSON")
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "query is required")
	}

	results, err := searchClient.Search(c.Context(), query, req.Num)
	if err != nil {
		fiberlog.Errorf("web search failed: %v", err)
		return jsonError(c, fiber.StatusBadGateway, "search_failed", "Search request failed")
	}

	return c.JSON(fiber.Map{"results": results, "count": len(results)})
}
