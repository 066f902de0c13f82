package web

import (
	"encoding/csv"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"poison-machine/internal/query"
	"poison-machine/internal/twitterapi"
)

// export column order matches the results table.
var exportHeader = []string{
	"id", "url", "text", "createdAt", "author_userName", "author_name",
	"author_id", "likeCount", "retweetCount", "replyCount", "quoteCount",
	"viewCount", "lang",
}

func exportRow(t twitterapi.Tweet) []string {
	return []string{
		t.ID, t.URL, t.Text, t.CreatedAt, t.AuthorHandle, t.AuthorName,
		t.AuthorID, strconv.Itoa(t.LikeCount), strconv.Itoa(t.RetweetCount),
		strconv.Itoa(t.ReplyCount), strconv.Itoa(t.QuoteCount),
		strconv.Itoa(t.ViewCount), t.Lang,
	}
}

// runExportSearch reruns the posted search for export. Export has no partial
// mode: a failed upstream call renders the same error page as /search.
func (s *Server) runExportSearch(c *gin.Context) ([]twitterapi.Tweet, bool) {
	if !s.cfg.SearchEnabled() {
		s.renderError(c, http.StatusServiceUnavailable, "TWITTERAPI_IO_KEY is not configured", "")
		return nil, false
	}

	spec := s.parseFilterSpec(c)
	result, err := s.orch.Run(c.Request.Context(), spec)
	if err != nil {
		s.renderError(c, http.StatusBadGateway, err.Error(), query.Build(spec))
		return nil, false
	}
	return result.Items, true
}

func (s *Server) exportCSV(c *gin.Context) {
	items, ok := s.runExportSearch(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="poison_results.csv"`)

	w := csv.NewWriter(c.Writer)
	_ = w.Write(exportHeader)
	for _, t := range items {
		_ = w.Write(exportRow(t))
	}
	w.Flush()
}

func (s *Server) exportXLSX(c *gin.Context) {
	items, ok := s.runExportSearch(c)
	if !ok {
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for col, name := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheet, cell, name)
	}
	for i, t := range items {
		for col, v := range exportRow(t) {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="poison_results.xlsx"`)

	if err := f.Write(c.Writer); err != nil {
		s.log.Warn("xlsx_write_failed", "error", err)
	}
}
