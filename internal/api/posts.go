package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/newsnexus/internal/common"
	"github.com/dmitrijs2005/newsnexus/internal/models"
	"github.com/dmitrijs2005/newsnexus/internal/publisher"
	"github.com/gin-gonic/gin"
)

type createPostRequest struct {
	ArticleID *string `json:"article_id"`
	Platform  string  `json:"platform" binding:"required"`
	Content   string  `json:"content" binding:"required"`
	Hashtags  string  `json:"hashtags"`
}

type editPostRequest struct {
	Content  *string `json:"content"`
	Hashtags *string `json:"hashtags"`
}

type generateRequest struct {
	ArticleID string `json:"article_id" binding:"required"`
	Platform  string `json:"platform" binding:"required"`
}

type scheduleRequest struct {
	ScheduledAt *time.Time `json:"scheduled_at" binding:"required"`
}

type replyRequest struct {
	Text string `json:"text" binding:"required"`
}

func (s *Server) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func (s *Server) listPosts(c *gin.Context) {
	list, err := s.Posts.List(c.Request.Context(), models.PostStatus(c.Query("status")))
	if err != nil {
		s.handleError(c, err)
		return
	}
	if list == nil {
		list = []models.Post{}
	}
	ok(c, http.StatusOK, list)
}

func (s *Server) createPost(c *gin.Context) {
	var req createPostRequest
	if !s.bind(c, &req) {
		return
	}

	p, err := s.Posts.Create(c.Request.Context(), publisher.NewPost{
		ArticleID: req.ArticleID,
		Platform:  models.Platform(req.Platform),
		Content:   req.Content,
		Hashtags:  req.Hashtags,
	})
	if err != nil {
		s.handleError(c, err)
		return
	}
	ok(c, http.StatusCreated, p)
}

func (s *Server) generatePost(c *gin.Context) {
	var req generateRequest
	if !s.bind(c, &req) {
		return
	}

	p, err := s.Posts.GenerateDraft(c.Request.Context(), req.ArticleID, models.Platform(req.Platform))
	if err != nil {
		s.handleError(c, err)
		return
	}
	ok(c, http.StatusCreated, p)
}

func (s *Server) getPost(c *gin.Context) {
	p, err := s.Posts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

func (s *Server) editPost(c *gin.Context) {
	var req editPostRequest
	if !s.bind(c, &req) {
		return
	}

	p, err := s.Posts.Edit(c.Request.Context(), c.Param("id"), req.Content, req.Hashtags)
	if err != nil {
		s.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

func (s *Server) deletePost(c *gin.Context) {
	if err := s.Posts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, nil)
}

// publishPost answers with the post after the attempt. A platform failure is
// not an HTTP error: the post comes back failed with its message.
func (s *Server) publishPost(c *gin.Context) {
	p, err := s.Posts.Publish(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

func (s *Server) schedulePost(c *gin.Context) {
	var req scheduleRequest
	if !s.bind(c, &req) {
		return
	}

	p, err := s.Posts.Schedule(c.Request.Context(), c.Param("id"), *req.ScheduledAt)
	if err != nil {
		s.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

func (s *Server) unschedulePost(c *gin.Context) {
	p, err := s.Posts.Unschedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

func (s *Server) postComments(c *gin.Context) {
	list, err := s.Posts.Comments(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	if list == nil {
		list = []models.Comment{}
	}
	ok(c, http.StatusOK, list)
}

func (s *Server) replyToComment(c *gin.Context) {
	p, valid := platformParam(c)
	if !valid {
		return
	}
	var req replyRequest
	if !s.bind(c, &req) {
		return
	}

	res, err := s.Posts.Reply(c.Request.Context(), p, c.Param("commentId"), req.Text)
	if err != nil {
		s.handleError(c, err)
		return
	}
	if !res.Success {
		c.JSON(http.StatusOK, envelope{Success: false, Data: res, Error: res.Error})
		return
	}
	ok(c, http.StatusOK, res)
}

func platformParam(c *gin.Context) (models.Platform, bool) {
	p, err := models.ParsePlatform(c.Param("platform"))
	if err != nil {
		fail(c, http.StatusBadRequest, fmt.Errorf("%w: %s", common.ErrUnknownPlatform, c.Param("platform")).Error())
		return "", false
	}
	return p, true
}
