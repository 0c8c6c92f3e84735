package server

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/paperdesk/paperdesk/internal/store"
	"github.com/paperdesk/paperdesk/internal/textindex"
)

type PapersHandler struct {
	Store  *store.Store
	Index  *textindex.Index
	Logger *log.Logger
}

func (h *PapersHandler) Register(g *echo.Group) {
	g.POST("/papers", h.create)
	g.GET("/papers", h.list)
	g.GET("/papers/:id", h.get)
	g.PUT("/papers/:id", h.update)
	g.DELETE("/papers/:id", h.delete)
	g.POST("/papers/:paperID/chapters", h.createChapter)
	g.GET("/papers/:paperID/chapters", h.listChapters)
	g.DELETE("/chapters/:id", h.deleteChapter)
	g.POST("/papers/:paperID/figures", h.createFigure)
	g.GET("/papers/:paperID/figures", h.listFigures)
	g.DELETE("/figures/:id", h.deleteFigure)
}

func (h *PapersHandler) create(c echo.Context) error {
	var req PaperRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}
	paper, err := h.Store.CreatePaper(c.Request().Context(), store.Paper{
		Title:    req.Title,
		Authors:  req.Authors,
		Year:     req.Year,
		Content:  req.Content,
		FilePath: req.FilePath,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.Index.IndexPaper(paper); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, paper)
}

func (h *PapersHandler) list(c echo.Context) error {
	papers, err := h.Store.ListPapers(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if papers == nil {
		papers = []store.Paper{}
	}
	return c.JSON(http.StatusOK, papers)
}

func (h *PapersHandler) get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	paper, ok, err := h.Store.GetPaper(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "paper not found")
	}
	return c.JSON(http.StatusOK, paper)
}

func (h *PapersHandler) update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req PaperRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}
	ctx := c.Request().Context()
	paper := store.Paper{
		ID:       id,
		Title:    req.Title,
		Authors:  req.Authors,
		Year:     req.Year,
		Content:  req.Content,
		FilePath: req.FilePath,
	}
	if err := h.Store.UpdatePaper(ctx, paper); err != nil {
		if isNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "paper not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	updated, _, err := h.Store.GetPaper(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.Index.IndexPaper(updated); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *PapersHandler) delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	// Child rows cascade away in Postgres; their index entries don't, so
	// collect the ids before the delete.
	memoIDs, chapterIDs, figureIDs, err := h.Store.ChildDocumentIDs(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	for _, memoID := range memoIDs {
		if err := h.Store.DeleteMemoRelations(ctx, memoID); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	if err := h.Store.DeletePaper(ctx, id); err != nil {
		if isNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "paper not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.Index.Delete(store.KindPaper, id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	for kind, ids := range map[store.Kind][]string{
		store.KindMemo:    memoIDs,
		store.KindChapter: chapterIDs,
		store.KindFigure:  figureIDs,
	} {
		for _, childID := range ids {
			if err := h.Index.Delete(kind, childID); err != nil {
				h.Logger.Printf("dropping %s %s from index: %v", kind, childID, err)
			}
		}
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *PapersHandler) createChapter(c echo.Context) error {
	paperID, err := pathID(c, "paperID")
	if err != nil {
		return err
	}
	var req ChapterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}
	chapter, err := h.Store.CreateChapter(c.Request().Context(), store.Chapter{
		PaperID:       paperID,
		ChapterNumber: req.ChapterNumber,
		Title:         req.Title,
		Content:       req.Content,
		PageStart:     req.PageStart,
		PageEnd:       req.PageEnd,
	})
	if err != nil {
		if pgErr, ok := errAs(err); ok && pgErr.Code == "23503" {
			return echo.NewHTTPError(http.StatusNotFound, "paper not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.Index.IndexChapter(chapter); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, chapter)
}

func (h *PapersHandler) listChapters(c echo.Context) error {
	paperID, err := pathID(c, "paperID")
	if err != nil {
		return err
	}
	chapters, err := h.Store.ListChaptersByPaper(c.Request().Context(), paperID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if chapters == nil {
		chapters = []store.Chapter{}
	}
	return c.JSON(http.StatusOK, chapters)
}

func (h *PapersHandler) deleteChapter(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Store.DeleteChapter(c.Request().Context(), id); err != nil {
		if isNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "chapter not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.Index.Delete(store.KindChapter, id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *PapersHandler) createFigure(c echo.Context) error {
	paperID, err := pathID(c, "paperID")
	if err != nil {
		return err
	}
	var req FigureRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Caption == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "caption is required")
	}
	figure, err := h.Store.CreateFigure(c.Request().Context(), store.Figure{
		PaperID:      paperID,
		FigureNumber: req.FigureNumber,
		Caption:      req.Caption,
		PageNumber:   req.PageNumber,
	})
	if err != nil {
		if pgErr, ok := errAs(err); ok && pgErr.Code == "23503" {
			return echo.NewHTTPError(http.StatusNotFound, "paper not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.Index.IndexFigure(figure); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, figure)
}

func (h *PapersHandler) listFigures(c echo.Context) error {
	paperID, err := pathID(c, "paperID")
	if err != nil {
		return err
	}
	figures, err := h.Store.ListFiguresByPaper(c.Request().Context(), paperID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if figures == nil {
		figures = []store.Figure{}
	}
	return c.JSON(http.StatusOK, figures)
}

func (h *PapersHandler) deleteFigure(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Store.DeleteFigure(c.Request().Context(), id); err != nil {
		if isNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "figure not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.Index.Delete(store.KindFigure, id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
