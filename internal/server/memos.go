package server

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/paperdesk/paperdesk/internal/relations"
	"github.com/paperdesk/paperdesk/internal/store"
	"github.com/paperdesk/paperdesk/internal/textindex"
)

// relatedExcerptLen bounds the content excerpt in related-memo listings.
const relatedExcerptLen = 200

type MemosHandler struct {
	Store          *store.Store
	Index          *textindex.Index
	Builder        *relations.Builder
	RebuildOnWrite bool
	Logger         *log.Logger
}

func (h *MemosHandler) Register(g *echo.Group) {
	g.POST("/papers/:paperID/memos", h.create)
	g.GET("/papers/:paperID/memos", h.listByPaper)
	g.GET("/memos/:id", h.get)
	g.PUT("/memos/:id", h.update)
	g.DELETE("/memos/:id", h.delete)
	g.GET("/memos/:id/related", h.related)
	g.POST("/memos/:id/relations/rebuild", h.rebuild)
	g.POST("/memos/:id/tags", h.addTag)
	g.DELETE("/memos/:id/tags/:tag", h.removeTag)
	g.POST("/relations/rebuild", h.rebuildAll)
}

func pathID(c echo.Context, name string) (string, error) {
	id := c.Param(name)
	if _, err := uuid.Parse(id); err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *MemosHandler) create(c echo.Context) error {
	paperID, err := pathID(c, "paperID")
	if err != nil {
		return err
	}
	var req MemoRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}
	ctx := c.Request().Context()
	memo, err := h.Store.CreateMemo(ctx, store.Memo{
		PaperID:    paperID,
		Content:    req.Content,
		PageNumber: req.PageNumber,
		PageRange:  req.PageRange,
	})
	if err != nil {
		if pgErr, ok := errAs(err); ok && pgErr.Code == "23503" {
			return echo.NewHTTPError(http.StatusNotFound, "paper not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.Index.IndexMemo(memo); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.triggerRebuild(memo.ID)
	return c.JSON(http.StatusCreated, memo)
}

func (h *MemosHandler) listByPaper(c echo.Context) error {
	paperID, err := pathID(c, "paperID")
	if err != nil {
		return err
	}
	memos, err := h.Store.ListMemosByPaper(c.Request().Context(), paperID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if memos == nil {
		memos = []store.Memo{}
	}
	return c.JSON(http.StatusOK, memos)
}

func (h *MemosHandler) get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	memo, ok, err := h.Store.GetMemo(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "memo not found")
	}
	return c.JSON(http.StatusOK, memo)
}

func (h *MemosHandler) update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req MemoRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}
	ctx := c.Request().Context()
	prev, ok, err := h.Store.GetMemo(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "memo not found")
	}
	if err := h.Store.UpdateMemo(ctx, id, req.Content, req.PageNumber, req.PageRange); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	memo, _, err := h.Store.GetMemo(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.Index.IndexMemo(memo); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	// Relations depend only on content; page edits alone don't dirty them.
	if prev.Content != req.Content {
		h.triggerRebuild(id)
	}
	return c.JSON(http.StatusOK, memo)
}

func (h *MemosHandler) delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	// Edges pointing at the memo go too, not just outgoing ones; stale
	// inbound edges would resurface the deleted memo in related lists.
	if err := h.Store.DeleteMemoRelations(ctx, id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.Store.DeleteMemo(ctx, id); err != nil {
		if isNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "memo not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.Index.Delete(store.KindMemo, id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *MemosHandler) related(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	limit := 10
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}
	related, err := h.Store.GetRelated(c.Request().Context(), id, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	out := make([]RelatedMemoResponse, 0, len(related))
	for _, r := range related {
		out = append(out, RelatedMemoResponse{
			RelatedMemoID:  r.RelatedMemoID,
			PaperID:        r.PaperID,
			PaperTitle:     r.PaperTitle,
			ContentExcerpt: excerpt(r.Content, relatedExcerptLen),
			CommonTerms:    r.CommonTerms,
			Score:          r.Score,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *MemosHandler) rebuild(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	edges, err := h.Builder.Rebuild(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	relationRebuildsTotal.Inc()
	return c.JSON(http.StatusOK, RebuildResponse{MemoID: id, Edges: edges})
}

func (h *MemosHandler) rebuildAll(c echo.Context) error {
	go func() {
		if _, err := h.Builder.RebuildAll(context.Background()); err != nil {
			h.Logger.Printf("bulk relation rebuild failed: %v", err)
		}
	}()
	return c.NoContent(http.StatusAccepted)
}

func (h *MemosHandler) addTag(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req TagRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Tag == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "tag is required")
	}
	if err := h.Store.AddMemoTag(c.Request().Context(), id, req.Tag); err != nil {
		if pgErr, ok := errAs(err); ok && pgErr.Code == "23503" {
			return echo.NewHTTPError(http.StatusNotFound, "memo not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusCreated)
}

func (h *MemosHandler) removeTag(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	tag := c.Param("tag")
	if err := h.Store.RemoveMemoTag(c.Request().Context(), id, tag); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// triggerRebuild kicks the relation rebuild without blocking the request.
// Callers must not assume relations are fresh when the response returns.
func (h *MemosHandler) triggerRebuild(memoID string) {
	if !h.RebuildOnWrite {
		return
	}
	go func() {
		if _, err := h.Builder.Rebuild(context.Background(), memoID); err != nil {
			h.Logger.Printf("relation rebuild for memo %s failed: %v", memoID, err)
			return
		}
		relationRebuildsTotal.Inc()
	}()
}

func excerpt(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
