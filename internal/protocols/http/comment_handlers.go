package http

import (
	"github.com/gin-gonic/gin"

	"novelhub/pkg/models"
)

// NextCursorHeader carries the replies continuation token
const NextCursorHeader = "X-Next-Cursor"

// listComments returns one page of top-level comments for a target
func (s *Server) listComments(c *gin.Context) {
	page, ok := queryInt(c, "page")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	viewerID, _ := GetUserID(c)
	result, err := s.commentSvc.ListTopLevel(c.Request.Context(), models.ListCommentsFilter{
		TargetType: models.TargetType(c.Query("target_type")),
		TargetID:   c.Query("target_id"),
		Page:       page,
		Limit:      limit,
		Sort:       models.SortOrder(c.Query("sort")),
	}, viewerID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, 200, "", result)
}

// getComment returns a single comment
func (s *Server) getComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	viewerID, _ := GetUserID(c)
	comment, err := s.commentSvc.Get(c.Request.Context(), id, viewerID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, 200, "", comment)
}

// listReplies returns direct replies, oldest first
func (s *Server) listReplies(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	viewerID, _ := GetUserID(c)
	result, err := s.commentSvc.FetchReplies(c.Request.Context(), id, limit, c.Query("cursor"), viewerID)
	if err != nil {
		respondError(c, err)
		return
	}

	if result.NextCursor != "" {
		c.Header(NextCursorHeader, result.NextCursor)
	}
	respondOK(c, 200, "", result.Replies)
}

// createComment creates a comment or a reply
func (s *Server) createComment(c *gin.Context) {
	userID, _ := GetUserID(c)

	var req models.CreateCommentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := s.commentSvc.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, 201, "Comment created successfully", comment)
}

// updateComment edits the caller's own comment
func (s *Server) updateComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, _ := GetUserID(c)

	var req models.UpdateCommentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := s.commentSvc.Edit(c.Request.Context(), id, userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, 200, "Comment updated successfully", comment)
}

// deleteComment soft-deletes the caller's own comment
func (s *Server) deleteComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, _ := GetUserID(c)

	if err := s.commentSvc.Delete(c.Request.Context(), id, userID); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, 200, "Comment deleted successfully", nil)
}

// voteComment casts (+1/-1) or clears (0) the caller's vote
func (s *Server) voteComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, _ := GetUserID(c)

	var req models.VoteRequest
	if !bindJSON(c, &req) {
		return
	}

	var (
		comment *models.Comment
		err     error
	)
	if *req.Value == 0 {
		comment, err = s.voteSvc.ClearVote(c.Request.Context(), id, userID)
	} else {
		comment, err = s.voteSvc.CastVote(c.Request.Context(), id, userID, *req.Value)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, 200, "", comment)
}

// reportComment flags a comment for moderators
func (s *Server) reportComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, _ := GetUserID(c)

	var req models.ReportRequest
	if !bindJSON(c, &req) {
		return
	}

	report, err := s.moderationSvc.Report(c.Request.Context(), id, userID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, 201, "Report submitted", report)
}
