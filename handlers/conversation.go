package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"zakat_flow_go/config"
	"zakat_flow_go/db"
	"zakat_flow_go/middleware"
	"zakat_flow_go/services"

	"github.com/labstack/echo/v4"
)

type createConversationRequest struct {
	CaseID         string `json:"caseId"`
	ConversationID string `json:"conversationId"`
	Title          string `json:"title"`
}

// CreateConversationHandler returns the conversation bound to a case, creating
// it on first use
func CreateConversationHandler(c echo.Context) error {
	identity := middleware.GetCurrentIdentity(c)

	var req createConversationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	caseRef := strings.TrimSpace(req.CaseID)
	if caseRef == "" {
		// Accept the natural key form as well; it embeds the case number
		caseRef = strings.TrimPrefix(strings.TrimSpace(req.ConversationID), "conv-")
	}
	if caseRef == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "caseId or conversationId is required")
	}

	svc := services.NewConversationService(db.DB)
	conv, isNew, err := svc.GetOrCreate(caseRef, *identity)
	if err != nil {
		return httpError(err)
	}

	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	return c.JSON(status, echo.Map{
		"conversation":   conv,
		"conversationId": conv.ConversationID,
		"isNew":          isNew,
	})
}

type staffThreadRequest struct {
	Title     string   `json:"title"`
	MemberIDs []string `json:"memberIds"`
}

// CreateStaffThreadHandler opens an ad hoc thread between staff members
func CreateStaffThreadHandler(c echo.Context) error {
	identity := middleware.GetCurrentIdentity(c)

	var req staffThreadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	svc := services.NewConversationService(db.DB)
	conv, err := svc.CreateStaffThread(*identity, req.Title, req.MemberIDs)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"conversation":   conv,
		"conversationId": conv.ConversationID,
		"isNew":          true,
	})
}

// ListConversationsHandler lists conversations visible to the caller with
// per-row unread counts
func ListConversationsHandler(c echo.Context) error {
	identity := middleware.GetCurrentIdentity(c)

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	var archived *bool
	if raw := c.QueryParam("archived"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid archived filter")
		}
		archived = &v
	}

	svc := services.NewConversationService(db.DB)
	conversations, total, err := svc.List(*identity, page, limit, archived)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"conversations": conversations,
		"total":         total,
		"page":          page,
		"limit":         limit,
	})
}

// GetConversationHandler returns a conversation's messages in ascending order
// and marks them read for the caller as a side effect
func GetConversationHandler(c echo.Context) error {
	cfg := c.Get("config").(*config.Config)
	identity := middleware.GetCurrentIdentity(c)
	conversationID := c.Param("id")

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	svc := services.NewMessageService(db.DB, cfg)
	messages, total, conv, err := svc.ListMessages(conversationID, *identity, page, limit)
	if err != nil {
		return httpError(err)
	}

	if _, err := svc.MarkRead(conversationID, *identity); err != nil {
		// Reads still succeed when the receipt write fails
		c.Logger().Errorf("Failed to mark conversation %s read for %s: %v", conversationID, identity.ID, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"messages":     messages,
		"total":        total,
		"page":         page,
		"limit":        limit,
		"conversation": conv,
	})
}

// MarkReadHandler advances the caller's read cursor over a conversation
func MarkReadHandler(c echo.Context) error {
	cfg := c.Get("config").(*config.Config)
	identity := middleware.GetCurrentIdentity(c)

	svc := services.NewMessageService(db.DB, cfg)
	marked, err := svc.MarkRead(c.Param("id"), *identity)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":     "Messages marked as read",
		"markedCount": marked,
	})
}

type archiveRequest struct {
	Archived bool `json:"archived"`
}

// ArchiveConversationHandler toggles the archived flag (staff only)
func ArchiveConversationHandler(c echo.Context) error {
	identity := middleware.GetCurrentIdentity(c)

	var req archiveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	svc := services.NewConversationService(db.DB)
	conv, err := svc.SetArchived(c.Param("id"), *identity, req.Archived)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"conversation": conv})
}
