package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/conversagent/core/store"
)

type conversationDTO struct {
	ID                   string `json:"id"`
	CustomerID           string `json:"customer_id"`
	Channel              string `json:"channel"`
	State                string `json:"state"`
	LastIntent           string `json:"last_intent,omitempty"`
	LastConfidence       float64 `json:"last_confidence"`
	LowConfidenceCounter int    `json:"low_confidence_counter"`
	HandoffReason        string `json:"handoff_reason,omitempty"`
}

func toConversationDTO(c *store.Conversation) conversationDTO {
	return conversationDTO{
		ID:                   c.ID,
		CustomerID:           c.CustomerID,
		Channel:              c.Channel,
		State:                string(c.State),
		LastIntent:           c.LastIntent,
		LastConfidence:       c.LastConfidence,
		LowConfidenceCounter: c.LowConfidenceCounter,
		HandoffReason:        c.HandoffReason,
	}
}

func (s *Server) listConversations(c echo.Context) error {
	tc := TenantContext(c)
	limit := parseIntDefault(c.QueryParam("limit"), 50)

	find := &store.FindConversation{TenantID: tc.TenantID, Limit: limit}
	if customerID := c.QueryParam("customer_id"); customerID != "" {
		find.CustomerID = &customerID
	}
	if state := c.QueryParam("state"); state != "" {
		st := store.ConversationState(state)
		find.State = &st
	}

	conversations, err := s.store.ListConversations(c.Request().Context(), find)
	if err != nil {
		return err
	}

	out := make([]conversationDTO, 0, len(conversations))
	for _, conv := range conversations {
		out = append(out, toConversationDTO(conv))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) getConversation(c echo.Context) error {
	tc := TenantContext(c)
	conv, err := s.store.GetConversation(c.Request().Context(), tc.TenantID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toConversationDTO(conv))
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
