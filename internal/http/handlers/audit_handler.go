// Audit history handler.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/modguard/go-chat-moderator/internal/domain"
	"github.com/modguard/go-chat-moderator/internal/utils"
)

// Pagination carries paging metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListAuditResponse wraps a page of audit records, newest first.
type ListAuditResponse struct {
	Records    []domain.AuditRecord `json:"records"`
	Pagination Pagination           `json:"pagination"`
}

// ListAudit godoc
// @ID          listAudit
// @Summary     List a chat's moderation decisions
// @Tags        Moderation
// @Produce     json
// @Param       id        path  int true  "Chat ID"
// @Param       page      query int false "Page (1-based)"
// @Param       page_size query int false "Page size (max 100)"
// @Success     200 {object} ListAuditResponse
// @Failure     400 {object} ErrorResponse
// @Router      /chats/{id}/audit [get]
func (h *Handlers) ListAudit(c *gin.Context) {
	chatID, okID := chatIDParam(c)
	if !okID {
		return
	}

	page, pageSize := utils.PageParams(c.Query("page"), c.Query("page_size"))
	records, total, err := h.auditSvc.ListAudit(c.Request.Context(), chatID, (page-1)*pageSize, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list audit records")
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListAuditResponse{
		Records: records,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
