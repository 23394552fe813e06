package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"orderlens/models"
	"orderlens/service"
	"orderlens/validation"
)

// newCorrelationID returns a short id that ties one request's log lines
// together and is safe to show to the user.
func newCorrelationID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// ChatHandler answers a natural-language question about the orders data
// @Summary      Ask a question about the data
// @Description  Turn a plain-language question plus the active dashboard filters into a validated SQL query, run it and return chart-ready results
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request  body      models.ChatRequest   true  "Question and active filters"
// @Success      200      {object}  models.ChatResponse  "Answer with data and chart config"
// @Failure      400      {object}  models.ChatResponse  "Invalid request"
// @Failure      422      {object}  models.ChatResponse  "Generated query rejected"
// @Failure      500      {object}  models.ChatResponse  "Query execution failed"
// @Failure      502      {object}  models.ChatResponse  "SQL generation failed"
// @Failure      504      {object}  models.ChatResponse  "Query timed out"
// @Router       /api/chat [post]
func (h *Handlers) ChatHandler(c *gin.Context) {
	correlationID := newCorrelationID()

	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ChatResponse{
			Error:         "Invalid request",
			CorrelationID: correlationID,
		})
		return
	}

	if !validation.IsValidPrompt(req.Message) {
		c.JSON(http.StatusBadRequest, models.ChatResponse{
			Error:         "The question appears to be invalid or gibberish. Please ask a meaningful question.",
			CorrelationID: correlationID,
		})
		return
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	log.Printf("[%s] chat question (conversation %s): %s", correlationID, conversationID, req.Message)

	if err := h.store.AppendTurn(conversationID, "user", req.Message); err != nil {
		log.Printf("[%s] failed to store user turn: %v", correlationID, err)
	}

	resp, err := h.pipeline.Run(c.Request.Context(), correlationID, req.Message, req.Filters)
	if err != nil {
		status, message := mapPipelineError(err)
		if err := h.store.AppendTurn(conversationID, "assistant", message); err != nil {
			log.Printf("[%s] failed to store assistant turn: %v", correlationID, err)
		}
		c.JSON(status, models.ChatResponse{
			Error:          message,
			CorrelationID:  correlationID,
			ConversationID: conversationID,
		})
		return
	}

	resp.ConversationID = conversationID
	if err := h.store.AppendTurn(conversationID, "assistant", resp.AnswerText); err != nil {
		log.Printf("[%s] failed to store assistant turn: %v", correlationID, err)
	}

	c.JSON(http.StatusOK, resp)
}

// mapPipelineError translates a pipeline failure into an HTTP status and
// the sanitized message the pipeline prepared. Anything unexpected gets a
// generic message; internals stay in the logs.
func mapPipelineError(err error) (int, string) {
	var pe *service.PipelineError
	if !errors.As(err, &pe) {
		return http.StatusInternalServerError, "Something went wrong handling that question."
	}
	switch pe.Kind {
	case service.FailGeneration:
		return http.StatusBadGateway, pe.UserMessage
	case service.FailPlaceholder, service.FailUnsafe:
		return http.StatusUnprocessableEntity, pe.UserMessage
	case service.FailTimeout:
		return http.StatusGatewayTimeout, pe.UserMessage
	default:
		return http.StatusInternalServerError, pe.UserMessage
	}
}

// ChatHistoryHandler returns a conversation's turns
// @Summary      Get conversation history
// @Description  Get all turns of one conversation, oldest first
// @Tags         Chat
// @Produce      json
// @Param        conversation_id  path      string  true  "Conversation ID"
// @Success      200              {object}  map[string]interface{}  "Conversation turns"
// @Failure      500              {object}  map[string]string       "Failed to load history"
// @Router       /api/chat/history/{conversation_id} [get]
func (h *Handlers) ChatHistoryHandler(c *gin.Context) {
	conversationID := c.Param("conversation_id")

	turns, err := h.store.GetConversation(conversationID)
	if err != nil {
		log.Printf("failed to load conversation %s: %v", conversationID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load chat history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation_id": conversationID,
		"turns":           turns,
	})
}
