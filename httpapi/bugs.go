package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bugline/bugline/domain"
	"github.com/bugline/bugline/service"
)

type createBugRequest struct {
	Title       string     `json:"title"`
	AssigneeID  *uuid.UUID `json:"assignee_id"`
	Description string     `json:"description"`
	Environment string     `json:"environment"`
	Urgency     string     `json:"urgency"`
	Images      []string   `json:"images"`
}

func (s *Server) createBug(c *gin.Context) {
	var req createBugRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, ok := s.dispatch(c, service.CreateBug{
		Title:       req.Title,
		AuthorID:    callerClaims(c).Subject,
		AssigneeID:  req.AssigneeID,
		Description: req.Description,
		Environment: domain.Environment(req.Environment),
		Urgency:     domain.Urgency(req.Urgency),
		Images:      req.Images,
	})
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": res})
}

type updateBugRequest struct {
	Title       *string    `json:"title"`
	AssigneeID  *uuid.UUID `json:"assignee_id"`
	Description *string    `json:"description"`
	Environment *string    `json:"environment"`
	Urgency     *string    `json:"urgency"`
	Status      *string    `json:"status"`
	Images      []string   `json:"images"`
}

func (s *Server) updateBug(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, err)
		return
	}

	var req updateBugRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	cmd := service.UpdateBug{
		ID:          id,
		AuthorID:    callerClaims(c).Subject,
		Title:       req.Title,
		AssigneeID:  req.AssigneeID,
		Description: req.Description,
		Images:      req.Images,
	}
	if req.Environment != nil {
		env := domain.Environment(*req.Environment)
		cmd.Environment = &env
	}
	if req.Urgency != nil {
		u := domain.Urgency(*req.Urgency)
		cmd.Urgency = &u
	}
	if req.Status != nil {
		st := domain.BugStatus(*req.Status)
		cmd.Status = &st
	}

	if _, ok := s.dispatch(c, cmd); !ok {
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteBug(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, err)
		return
	}

	if _, ok := s.dispatch(c, service.SoftDeleteBug{ID: id, AuthorID: callerClaims(c).Subject}); !ok {
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getBug(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, err)
		return
	}

	detail, err := s.views.Bug(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) listBugs(c *gin.Context) {
	f, err := bugFilterFromQuery(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	bugs, err := s.views.Bugs(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bugs": bugs})
}

type bugListQuery struct {
	AuthorID   string `form:"author_id"`
	AssigneeID string `form:"assignee_id"`
	Status     string `form:"status"`
	Urgency    string `form:"urgency"`
	Env        string `form:"environment"`
	TagID      string `form:"tag_id"`
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
}

func bugFilterFromQuery(c *gin.Context) (domain.BugFilter, error) {
	var q bugListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return domain.BugFilter{}, err
	}

	f := domain.BugFilter{
		Status:      domain.BugStatus(q.Status),
		Urgency:     domain.Urgency(q.Urgency),
		Environment: domain.Environment(q.Env),
		Limit:       q.Limit,
		Offset:      q.Offset,
	}
	for _, pair := range []struct {
		raw string
		dst *uuid.UUID
	}{
		{q.AuthorID, &f.AuthorID},
		{q.AssigneeID, &f.AssigneeID},
		{q.TagID, &f.TagID},
	} {
		if pair.raw == "" {
			continue
		}
		id, err := uuid.Parse(pair.raw)
		if err != nil {
			return domain.BugFilter{}, err
		}
		*pair.dst = id
	}
	return f, nil
}

func (s *Server) bugHistory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, err)
		return
	}

	recs, err := s.views.History(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": recs})
}

type commentRequest struct {
	Text string `json:"text"`
}

func (s *Server) createComment(c *gin.Context) {
	bugID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, err)
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, ok := s.dispatch(c, service.CreateComment{
		BugID:    bugID,
		AuthorID: callerClaims(c).Subject,
		Text:     req.Text,
	})
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": res})
}

func (s *Server) updateComment(c *gin.Context) {
	bugID, commentID, ok := commentPath(c)
	if !ok {
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if _, ok := s.dispatch(c, service.UpdateComment{
		BugID:     bugID,
		CommentID: commentID,
		AuthorID:  callerClaims(c).Subject,
		Text:      req.Text,
	}); !ok {
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteComment(c *gin.Context) {
	bugID, commentID, ok := commentPath(c)
	if !ok {
		return
	}

	if _, ok := s.dispatch(c, service.SoftDeleteComment{
		BugID:     bugID,
		CommentID: commentID,
		AuthorID:  callerClaims(c).Subject,
	}); !ok {
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) upvoteComment(c *gin.Context) {
	bugID, commentID, ok := commentPath(c)
	if !ok {
		return
	}

	if _, ok := s.dispatch(c, service.UpvoteComment{BugID: bugID, CommentID: commentID}); !ok {
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) downvoteComment(c *gin.Context) {
	bugID, commentID, ok := commentPath(c)
	if !ok {
		return
	}

	if _, ok := s.dispatch(c, service.DownvoteComment{BugID: bugID, CommentID: commentID}); !ok {
		return
	}
	c.Status(http.StatusNoContent)
}

func commentPath(c *gin.Context) (bugID, commentID uuid.UUID, ok bool) {
	bugID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	commentID, err = uuid.Parse(c.Param("commentID"))
	if err != nil {
		badRequest(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	return bugID, commentID, true
}

type createTagRequest struct {
	Name string `json:"name"`
}

func (s *Server) createTag(c *gin.Context) {
	var req createTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, ok := s.dispatch(c, service.CreateTag{Name: req.Name})
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": res})
}

func (s *Server) listTags(c *gin.Context) {
	tags, err := s.views.Tags(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

func (s *Server) addTag(c *gin.Context) {
	bugID, tagID, ok := tagPath(c)
	if !ok {
		return
	}

	if _, ok := s.dispatch(c, service.AddTag{BugID: bugID, TagID: tagID}); !ok {
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) removeTag(c *gin.Context) {
	bugID, tagID, ok := tagPath(c)
	if !ok {
		return
	}

	if _, ok := s.dispatch(c, service.RemoveTag{BugID: bugID, TagID: tagID}); !ok {
		return
	}
	c.Status(http.StatusNoContent)
}

func tagPath(c *gin.Context) (bugID, tagID uuid.UUID, ok bool) {
	bugID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	tagID, err = uuid.Parse(c.Param("tagID"))
	if err != nil {
		badRequest(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	return bugID, tagID, true
}
