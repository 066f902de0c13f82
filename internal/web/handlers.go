package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"poison-machine/internal/query"
	"poison-machine/internal/store"
	"poison-machine/internal/twitterapi"
)

const appTitle = "Poison Machine"

func (s *Server) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Title":      appTitle,
		"Accounts":   s.accounts.List(),
		"PageSizes":  query.AllowedMaxResults,
		"CutoffDate": query.CutoffDate,
		"Role":       s.roleFor(c).String(),
	})
}

// parseFilterSpec turns the posted search form into a FilterSpec. Checked
// poison-list entries scope the search; with nothing checked the whole list
// applies unless the form asked for an unscoped search.
func (s *Server) parseFilterSpec(c *gin.Context) query.FilterSpec {
	spec := query.FilterSpec{
		Phrase:          strings.TrimSpace(c.PostForm("phrase")),
		SinceDate:       strings.TrimSpace(c.PostForm("since")),
		UntilDate:       strings.TrimSpace(c.PostForm("until")),
		LockedPreCutoff: c.PostForm("locked") == "on",
		MinLikes:        query.MinLikesUnset,
		MaxResults:      20,
	}

	if v := strings.TrimSpace(c.PostForm("min_likes")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			if n < 0 {
				n = 0
			}
			spec.MinLikes = n
		}
	}

	if v := c.PostForm("max_results"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			spec.MaxResults = query.ClampMaxResults(n)
		}
	}

	spec.Authors = c.PostFormArray("authors")
	if len(spec.Authors) == 0 && c.PostForm("scope") != "none" {
		spec.Authors = s.accounts.Handles()
	}

	return spec
}

type resultRow struct {
	twitterapi.Tweet
	DisplayName string
}

func (s *Server) doSearch(c *gin.Context) {
	if !s.cfg.SearchEnabled() {
		s.renderError(c, http.StatusServiceUnavailable, "TWITTERAPI_IO_KEY is not configured", "")
		return
	}

	spec := s.parseFilterSpec(c)

	result, err := s.orch.Run(c.Request.Context(), spec)
	if err != nil {
		s.renderError(c, http.StatusBadGateway, err.Error(), query.Build(spec))
		return
	}

	rows := make([]resultRow, 0, len(result.Items))
	for _, t := range result.Items {
		name := result.Names[strings.ToLower(query.NormalizeHandle(t.AuthorHandle))]
		if name == "" {
			name = t.AuthorHandle // raw-handle fallback
		}
		rows = append(rows, resultRow{Tweet: t, DisplayName: name})
	}

	c.HTML(http.StatusOK, "results.html", gin.H{
		"Title":  appTitle,
		"Query":  result.Query,
		"Count":  len(rows),
		"Items":  rows,
		"Phrase": spec.Phrase,
	})
}

func (s *Server) renderError(c *gin.Context, status int, msg, queryStr string) {
	c.HTML(status, "error.html", gin.H{
		"Title": appTitle,
		"Error": msg,
		"Query": queryStr,
	})
}

func (s *Server) avatar(c *gin.Context) {
	handle := strings.TrimSpace(c.Query("handle"))
	if handle == "" {
		c.String(http.StatusBadRequest, "missing handle")
		return
	}

	entry, ok := s.cache.Get(handle)
	if !ok || entry.AvatarURL == "" {
		c.String(http.StatusNotFound, "no cached avatar")
		return
	}

	body, contentType, err := s.api.FetchAvatar(c.Request.Context(), entry.AvatarURL)
	if err != nil {
		s.log.Warn("avatar_fetch_failed", "handle", handle, "error", err)
		c.String(http.StatusBadGateway, "avatar fetch failed")
		return
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}
	c.Data(http.StatusOK, contentType, body)
}

func (s *Server) accountsView(c *gin.Context) {
	c.HTML(http.StatusOK, "accounts.html", gin.H{
		"Title":    appTitle,
		"Accounts": s.accounts.List(),
	})
}

func (s *Server) accountsAdd(c *gin.Context) {
	handle := c.PostForm("handle")
	label := c.PostForm("label")
	if err := s.accounts.Add(handle, label); err != nil {
		s.renderError(c, http.StatusInternalServerError, "failed to save account: "+err.Error(), "")
		return
	}
	c.Redirect(http.StatusSeeOther, "/accounts")
}

func (s *Server) accountsRemove(c *gin.Context) {
	if err := s.accounts.Remove(c.PostForm("handle")); err != nil {
		s.renderError(c, http.StatusInternalServerError, "failed to save accounts: "+err.Error(), "")
		return
	}
	c.Redirect(http.StatusSeeOther, "/accounts")
}

// accountsBulk replaces the whole poison list from a textarea, one entry per
// line, optionally "handle label...".
func (s *Server) accountsBulk(c *gin.Context) {
	var accounts []store.Account
	for _, line := range strings.Split(c.PostForm("bulktext"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		handle, label, _ := strings.Cut(line, " ")
		accounts = append(accounts, store.Account{Handle: handle, Label: strings.TrimSpace(label)})
	}

	if err := s.accounts.Replace(accounts); err != nil {
		s.renderError(c, http.StatusInternalServerError, "failed to save accounts: "+err.Error(), "")
		return
	}
	c.Redirect(http.StatusSeeOther, "/accounts")
}

func (s *Server) accountsExport(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="accounts.json"`)
	c.JSON(http.StatusOK, s.accounts.List())
}

// historyView lists search attempts newest-first.
func (s *Server) historyView(c *gin.Context) {
	entries := s.history.List()
	rows := make([]store.HistoryEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		rows = append(rows, entries[i])
	}

	c.HTML(http.StatusOK, "history.html", gin.H{
		"Title":   appTitle,
		"Entries": rows,
	})
}

func (s *Server) health(c *gin.Context) {
	// reading the stores exercises the data dir; a corrupt or missing file
	// degrades to an empty collection rather than an error
	c.JSON(http.StatusOK, gin.H{
		"ok":             true,
		"search_enabled": s.cfg.SearchEnabled(),
		"guest_enabled":  s.cfg.GuestEnabled(),
		"accounts":       len(s.accounts.List()),
		"history":        len(s.history.List()),
	})
}
