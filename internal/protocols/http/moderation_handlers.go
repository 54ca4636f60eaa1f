package http

import (
	"github.com/gin-gonic/gin"

	"novelhub/pkg/models"
)

// adminListComments is the moderator listing with raw bodies
func (s *Server) adminListComments(c *gin.Context) {
	page, ok := queryInt(c, "page")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	result, err := s.moderationSvc.ListComments(c.Request.Context(), models.AdminCommentsFilter{
		TargetType: models.TargetType(c.Query("target_type")),
		TargetID:   c.Query("target_id"),
		AuthorID:   c.Query("author_id"),
		Status:     models.CommentStatus(c.Query("status")),
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, 200, "", result)
}

// adminListReports returns the report queue
func (s *Server) adminListReports(c *gin.Context) {
	page, ok := queryInt(c, "page")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	commentID, ok := queryInt(c, "comment_id")
	if !ok {
		return
	}

	result, err := s.moderationSvc.ListReports(c.Request.Context(), models.ReportsFilter{
		Status:    models.ReportStatus(c.Query("status")),
		CommentID: int64(commentID),
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, 200, "", result)
}

// resolveReport applies hide or dismiss to a report
func (s *Server) resolveReport(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	moderatorID, _ := GetUserID(c)

	var req models.ResolveReportRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := s.moderationSvc.Resolve(c.Request.Context(), id, moderatorID, req.Action)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, 200, "Report resolved", result)
}

// hideComment hides a comment without a report
func (s *Server) hideComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	moderatorID, _ := GetUserID(c)

	result, err := s.moderationSvc.Hide(c.Request.Context(), id, moderatorID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, 200, "Comment hidden", result)
}

// restoreComment unhides a hidden comment
func (s *Server) restoreComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	moderatorID, _ := GetUserID(c)

	comment, err := s.moderationSvc.Unhide(c.Request.Context(), id, moderatorID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, 200, "Comment restored", comment)
}

// hardDeleteComment removes a comment and its whole subtree
func (s *Server) hardDeleteComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	adminID, _ := GetUserID(c)

	removed, err := s.moderationSvc.HardDelete(c.Request.Context(), id, adminID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, 200, "Comment removed", gin.H{"removed": removed})
}
