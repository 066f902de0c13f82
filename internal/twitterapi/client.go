package twitterapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"
)

const (
	searchPath   = "/twitter/tweet/advanced_search"
	userInfoPath = "/twitter/user/info"

	// maxSearchPages caps cursor pagination per search; every page is a
	// billed upstream call.
	maxSearchPages = 10
)

// APIError is a non-200 answer from twitterapi.io.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twitterapi: status %d: %s", e.StatusCode, e.Body)
}

// Tweet is one search result, flattened from the API's nested author object.
type Tweet struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	Text         string `json:"text"`
	CreatedAt    string `json:"createdAt"`
	AuthorHandle string `json:"author_userName"`
	AuthorName   string `json:"author_name"`
	AuthorID     string `json:"author_id"`
	LikeCount    int    `json:"likeCount"`
	RetweetCount int    `json:"retweetCount"`
	ReplyCount   int    `json:"replyCount"`
	QuoteCount   int    `json:"quoteCount"`
	ViewCount    int    `json:"viewCount"`
	Lang         string `json:"lang"`
}

// UserInfo is the subset of a user-lookup answer the app cares about.
type UserInfo struct {
	Handle      string
	DisplayName string
	AvatarURL   string
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(baseURL, apiKey string, log *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: newHTTPClient(),
		log:        log,
	}
}

// newHTTPClient builds the shared pooled client used for every upstream call.
func newHTTPClient() *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,

		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   30 * time.Second,
	}
}

type searchResponse struct {
	Tweets []struct {
		ID        string `json:"id"`
		URL       string `json:"url"`
		Text      string `json:"text"`
		CreatedAt string `json:"createdAt"`
		Author    struct {
			ID       string `json:"id"`
			UserName string `json:"userName"`
			Name     string `json:"name"`
		} `json:"author"`
		LikeCount    int    `json:"likeCount"`
		RetweetCount int    `json:"retweetCount"`
		ReplyCount   int    `json:"replyCount"`
		QuoteCount   int    `json:"quoteCount"`
		ViewCount    int    `json:"viewCount"`
		Lang         string `json:"lang"`
	} `json:"tweets"`
	HasNextPage bool   `json:"has_next_page"`
	NextCursor  string `json:"next_cursor"`
}

// AdvancedSearch runs one advanced-search query and follows cursor pages
// until limit items are collected, the upstream runs out, or the page cap is
// reached. An empty page stops pagination even when the upstream claims more:
// a cursor that yields no items must not be chased.
func (c *Client) AdvancedSearch(ctx context.Context, queryStr string, limit int) ([]Tweet, error) {
	var items []Tweet
	cursor := ""

	for pages := 0; pages < maxSearchPages && len(items) < limit; pages++ {
		params := url.Values{}
		params.Set("query", queryStr)
		params.Set("queryType", "Latest")
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var page searchResponse
		if err := c.get(ctx, searchPath, params, &page); err != nil {
			return nil, err
		}

		for _, t := range page.Tweets {
			items = append(items, Tweet{
				ID:           t.ID,
				URL:          t.URL,
				Text:         t.Text,
				CreatedAt:    t.CreatedAt,
				AuthorHandle: t.Author.UserName,
				AuthorName:   t.Author.Name,
				AuthorID:     t.Author.ID,
				LikeCount:    t.LikeCount,
				RetweetCount: t.RetweetCount,
				ReplyCount:   t.ReplyCount,
				QuoteCount:   t.QuoteCount,
				ViewCount:    t.ViewCount,
				Lang:         t.Lang,
			})
			if len(items) == limit {
				break
			}
		}

		if len(page.Tweets) == 0 || !page.HasNextPage || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	return items, nil
}

type userInfoResponse struct {
	Data struct {
		UserName       string `json:"userName"`
		Name           string `json:"name"`
		ProfilePicture string `json:"profilePicture"`
	} `json:"data"`
}

// ResolveUser looks up a handle's display name and avatar. A well-formed
// answer with no name returns (nil, nil): absence is a normal outcome, not
// an error.
func (c *Client) ResolveUser(ctx context.Context, handle string) (*UserInfo, error) {
	params := url.Values{}
	params.Set("userName", handle)

	var resp userInfoResponse
	if err := c.get(ctx, userInfoPath, params, &resp); err != nil {
		return nil, err
	}

	if resp.Data.Name == "" && resp.Data.ProfilePicture == "" {
		return nil, nil
	}

	return &UserInfo{
		Handle:      resp.Data.UserName,
		DisplayName: resp.Data.Name,
		AvatarURL:   resp.Data.ProfilePicture,
	}, nil
}

// FetchAvatar streams avatar bytes for the proxy route.
func (c *Client) FetchAvatar(ctx context.Context, avatarURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, avatarURL, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", &APIError{StatusCode: resp.StatusCode, Body: "avatar fetch failed"}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, "", err
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("twitterapi: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("twitterapi: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Body: "malformed response: " + err.Error()}
	}
	return nil
}
