package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wuwenbin0122/lrblog/internal/forms"
	"github.com/wuwenbin0122/lrblog/internal/models"
	"github.com/wuwenbin0122/lrblog/internal/posts"
)

func (h *Handler) handleListPosts(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("page_size"))

	result, err := h.posts.List(c.Request.Context(), posts.Filter{
		Page:     page,
		PageSize: pageSize,
		Search:   c.Query("search"),
		Tags:     splitTags(c.QueryArray("tags")),
	})
	if err != nil {
		writeError(c, http.StatusInternalServerError, "failed to list posts", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":    result.Posts,
		"page":     result.Page,
		"pageSize": result.PageSize,
		"total":    result.Total,
	})
}

func (h *Handler) handleGetPost(c *gin.Context) {
	post, err := h.posts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, posts.ErrNotFound):
			writeError(c, http.StatusNotFound, "post not found", err)
		default:
			writeError(c, http.StatusInternalServerError, "failed to load post", err)
		}
		return
	}

	c.JSON(http.StatusOK, post)
}

func (h *Handler) handleCreatePost(c *gin.Context) {
	var form forms.ArticleForm
	if err := c.ShouldBindJSON(&form); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}
	form.Normalize()

	if err := form.Validate(); err != nil {
		var verr *forms.ValidationError
		if errors.As(err, &verr) {
			writeError(c, http.StatusBadRequest, verr.First(), err)
			return
		}
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	post := &models.Post{
		Title:       form.Title,
		Content:     form.Content,
		AuthorEmail: currentSession(c).Email(),
		Tags:        form.Tags,
	}
	if err := h.posts.Create(c.Request.Context(), post); err != nil {
		switch {
		case errors.Is(err, posts.ErrReadOnly):
			writeError(c, http.StatusServiceUnavailable, "publishing is not available", err)
		case errors.Is(err, posts.ErrSlugTaken):
			writeError(c, http.StatusConflict, "a post with this title already exists", err)
		default:
			writeError(c, http.StatusInternalServerError, "failed to publish post", err)
		}
		return
	}

	h.logger.Infow("post published", "id", post.ID, "author", post.AuthorEmail)
	c.JSON(http.StatusCreated, post)
}

// splitTags accepts both repeated and comma separated tag parameters.
func splitTags(values []string) []string {
	var tags []string
	for _, value := range values {
		for _, tag := range strings.Split(value, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, strings.ToLower(tag))
			}
		}
	}
	return tags
}
