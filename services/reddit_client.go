// services/reddit_client.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"picturegame-bot/config"
	"picturegame-bot/models"
	"picturegame-bot/utils"

	"golang.org/x/oauth2"
)

const (
	redditAPIBase  = "https://oauth.reddit.com"
	redditTokenURL = "https://www.reddit.com/api/v1/access_token"
)

// RedditClient implements ForumClient and CommentFeed against the Reddit API
// using a script-app password grant.
type RedditClient struct {
	BaseURL   string
	Client    *http.Client
	subreddit string
	username  string
	readOnly  bool
	cache     ReplyCache
	logger    *log.Logger
}

func NewRedditClient(ctx context.Context, cfg config.Config, cache ReplyCache, logger *log.Logger) *RedditClient {
	base := &http.Client{
		Timeout:   utils.HTTPClient.Timeout,
		Transport: &userAgentTransport{agent: cfg.Reddit.UserAgent, base: http.DefaultTransport},
	}
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.Reddit.ClientID,
		ClientSecret: cfg.Reddit.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  redditTokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, base)
	src := oauth2.ReuseTokenSource(nil, &passwordTokenSource{
		ctx:      tokenCtx,
		cfg:      oauthCfg,
		username: cfg.Reddit.Username,
		password: cfg.Reddit.Password,
	})
	client := oauth2.NewClient(tokenCtx, src)
	client.Timeout = base.Timeout

	return newRedditClient(cfg, redditAPIBase, client, cache, logger)
}

func newRedditClient(cfg config.Config, baseURL string, client *http.Client, cache ReplyCache, logger *log.Logger) *RedditClient {
	if cache == nil {
		cache = NewMemoryReplyCache()
	}
	return &RedditClient{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Client:    client,
		subreddit: cfg.Subreddit,
		username:  cfg.Reddit.Username,
		readOnly:  cfg.ReadOnly,
		cache:     cache,
		logger:    logger,
	}
}

// passwordTokenSource fetches a fresh token with the resource owner password
// grant each time the cached one expires.
type passwordTokenSource struct {
	ctx      context.Context
	cfg      *oauth2.Config
	username string
	password string
}

func (s *passwordTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.cfg.PasswordCredentialsToken(s.ctx, s.username, s.password)
	if err != nil {
		return nil, fmt.Errorf("reddit password grant: %w", err)
	}
	return tok, nil
}

type userAgentTransport struct {
	agent string
	base  http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.agent)
	return t.base.RoundTrip(r)
}

func (r *RedditClient) Username() string { return r.username }
func (r *RedditClient) ReadOnly() bool   { return r.readOnly }

// --- wire types ---

type redditThing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type redditListing struct {
	Data struct {
		Children []redditThing `json:"children"`
	} `json:"data"`
}

type redditComment struct {
	ID          string          `json:"id"`
	Author      string          `json:"author"`
	ParentID    string          `json:"parent_id"`
	LinkID      string          `json:"link_id"`
	Body        string          `json:"body"`
	IsSubmitter bool            `json:"is_submitter"`
	CreatedUTC  float64         `json:"created_utc"`
	Replies     json.RawMessage `json:"replies"`
	ModReports  [][]any         `json:"mod_reports"`
}

func (c redditComment) toModel() *models.Comment {
	return &models.Comment{
		ID:          c.ID,
		Author:      c.Author,
		ParentID:    c.ParentID,
		LinkID:      c.LinkID,
		Body:        html.UnescapeString(c.Body),
		IsSubmitter: c.IsSubmitter,
		Created:     int64(c.CreatedUTC),
	}
}

type redditLink struct {
	ID                  string  `json:"id"`
	Author              string  `json:"author"`
	Title               string  `json:"title"`
	IsSelf              bool    `json:"is_self"`
	SelfText            string  `json:"selftext"`
	URL                 string  `json:"url"`
	LinkFlairText       string  `json:"link_flair_text"`
	LinkFlairTemplateID string  `json:"link_flair_template_id"`
	CreatedUTC          float64 `json:"created_utc"`
}

func (l redditLink) toModel() *models.Submission {
	return &models.Submission{
		ID:       l.ID,
		Author:   l.Author,
		Title:    html.UnescapeString(l.Title),
		IsSelf:   l.IsSelf,
		SelfText: html.UnescapeString(l.SelfText),
		URL:      html.UnescapeString(l.URL),
		Flair:    models.Flair{Text: l.LinkFlairText, TemplateID: l.LinkFlairTemplateID},
		Created:  int64(l.CreatedUTC),
	}
}

type redditJSONResponse struct {
	JSON struct {
		Errors [][]any `json:"errors"`
		Data   struct {
			ID     string        `json:"id"`
			Name   string        `json:"name"`
			URL    string        `json:"url"`
			Things []redditThing `json:"things"`
		} `json:"data"`
	} `json:"json"`
}

func (resp *redditJSONResponse) err() error {
	if len(resp.JSON.Errors) == 0 {
		return nil
	}
	parts := make([]string, 0, len(resp.JSON.Errors))
	for _, e := range resp.JSON.Errors {
		fields := make([]string, 0, len(e))
		for _, f := range e {
			fields = append(fields, fmt.Sprint(f))
		}
		parts = append(parts, strings.Join(fields, ": "))
	}
	return fmt.Errorf("reddit api error: %s", strings.Join(parts, "; "))
}

// --- transport ---

func (r *RedditClient) do(ctx context.Context, method, path string, query, form url.Values, out any) error {
	u := r.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s %s returned status %d: %s", method, path, resp.StatusCode, string(snippet))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (r *RedditClient) post(ctx context.Context, path string, form url.Values) (*redditJSONResponse, error) {
	form.Set("api_type", "json")
	var out redditJSONResponse
	if err := r.do(ctx, http.MethodPost, path, nil, form, &out); err != nil {
		return nil, err
	}
	if err := out.err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &out, nil
}

// info looks a single thing up by fullname.
func (r *RedditClient) info(ctx context.Context, fullname string) (*redditThing, error) {
	var listing redditListing
	if err := r.do(ctx, http.MethodGet, "/api/info", url.Values{"id": {fullname}}, nil, &listing); err != nil {
		return nil, err
	}
	if len(listing.Data.Children) == 0 {
		return nil, fmt.Errorf("%s: %w", fullname, ErrNotFound)
	}
	return &listing.Data.Children[0], nil
}

// --- reads ---

func (r *RedditClient) IsCommentAReply(c *models.Comment) bool {
	return c != nil && c.IsReply()
}

func (r *RedditClient) FetchComment(ctx context.Context, fullname string) (*models.Comment, error) {
	if !strings.HasPrefix(fullname, models.KindComment) {
		fullname = models.KindComment + fullname
	}
	thing, err := r.info(ctx, fullname)
	if err != nil {
		return nil, err
	}
	var c redditComment
	if err := json.Unmarshal(thing.Data, &c); err != nil {
		return nil, fmt.Errorf("decode comment %s: %w", fullname, err)
	}
	return c.toModel(), nil
}

func (r *RedditClient) FetchSubmission(ctx context.Context, id string) (*models.Submission, error) {
	fullname := id
	if !strings.HasPrefix(fullname, models.KindLink) {
		fullname = models.KindLink + id
	}
	thing, err := r.info(ctx, fullname)
	if err != nil {
		return nil, err
	}
	var l redditLink
	if err := json.Unmarshal(thing.Data, &l); err != nil {
		return nil, fmt.Errorf("decode submission %s: %w", fullname, err)
	}
	return l.toModel(), nil
}

func (r *RedditClient) FetchPostFromComment(ctx context.Context, c *models.Comment) (*models.Submission, error) {
	return r.FetchSubmission(ctx, c.SubmissionID())
}

// IsDeleted reports whether the thing's author is gone. A thing the API no
// longer returns counts as deleted.
func (r *RedditClient) IsDeleted(ctx context.Context, fullname string) (bool, error) {
	thing, err := r.info(ctx, fullname)
	if err != nil {
		if isNotFound(err) {
			return true, nil
		}
		return false, err
	}
	var author struct {
		Author string `json:"author"`
	}
	if err := json.Unmarshal(thing.Data, &author); err != nil {
		return false, fmt.Errorf("decode %s: %w", fullname, err)
	}
	return models.IsDeletedAuthor(author.Author), nil
}

// HasReplied checks the cache and then the comment's direct replies for one
// authored by the bot.
func (r *RedditClient) HasReplied(ctx context.Context, c *models.Comment) (bool, error) {
	if r.cache.Seen(ctx, c.ID) {
		return true, nil
	}

	var listings []redditListing
	q := url.Values{"comment": {c.ID}, "depth": {"2"}, "limit": {"100"}}
	path := "/comments/" + c.SubmissionID()
	if err := r.do(ctx, http.MethodGet, path, q, nil, &listings); err != nil {
		return false, err
	}
	if len(listings) < 2 {
		return false, nil
	}

	for _, thing := range listings[1].Data.Children {
		var parent redditComment
		if err := json.Unmarshal(thing.Data, &parent); err != nil || parent.ID != c.ID {
			continue
		}
		// replies is "" when empty, a listing otherwise
		var replies redditListing
		if len(parent.Replies) == 0 || json.Unmarshal(parent.Replies, &replies) != nil {
			return false, nil
		}
		for _, child := range replies.Data.Children {
			var reply redditComment
			if err := json.Unmarshal(child.Data, &reply); err != nil {
				continue
			}
			if strings.EqualFold(reply.Author, r.username) {
				r.cache.Mark(ctx, c.ID)
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *RedditClient) NewComments(ctx context.Context, limit int) ([]*models.Comment, error) {
	var listing redditListing
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := r.do(ctx, http.MethodGet, "/r/"+r.subreddit+"/comments", q, nil, &listing); err != nil {
		return nil, err
	}
	out := make([]*models.Comment, 0, len(listing.Data.Children))
	for _, thing := range listing.Data.Children {
		var c redditComment
		if err := json.Unmarshal(thing.Data, &c); err != nil {
			r.logger.Printf("[Reddit] ⚠️ skipping undecodable comment: %v", err)
			continue
		}
		out = append(out, c.toModel())
	}
	return out, nil
}

// Reports returns reported comments with the moderators' report reasons.
func (r *RedditClient) Reports(ctx context.Context) ([]*models.Report, error) {
	var listing redditListing
	q := url.Values{"only": {"comments"}, "limit": {"100"}}
	if err := r.do(ctx, http.MethodGet, "/r/"+r.subreddit+"/about/reports", q, nil, &listing); err != nil {
		return nil, err
	}
	out := make([]*models.Report, 0, len(listing.Data.Children))
	for _, thing := range listing.Data.Children {
		if thing.Kind != "t1" {
			continue
		}
		var c redditComment
		if err := json.Unmarshal(thing.Data, &c); err != nil {
			r.logger.Printf("[Reddit] ⚠️ skipping undecodable report: %v", err)
			continue
		}
		report := &models.Report{Comment: c.toModel()}
		for _, mr := range c.ModReports {
			if len(mr) == 0 {
				continue
			}
			if reason, ok := mr[0].(string); ok {
				report.ModReasons = append(report.ModReasons, reason)
			}
		}
		out = append(out, report)
	}
	return out, nil
}

// --- writes ---

func (r *RedditClient) skipWrite(action string) bool {
	if r.readOnly {
		r.logger.Printf("[Reddit] read-only, skipping %s", action)
	}
	return r.readOnly
}

func (r *RedditClient) SetPostFlair(ctx context.Context, s *models.Submission, templateID string) error {
	if r.skipWrite("set post flair") {
		return nil
	}
	var err error
	if templateID == "" {
		_, err = r.post(ctx, "/r/"+r.subreddit+"/api/flair", url.Values{"link": {s.Fullname()}, "text": {""}})
	} else {
		_, err = r.post(ctx, "/r/"+r.subreddit+"/api/selectflair", url.Values{
			"link":              {s.Fullname()},
			"flair_template_id": {templateID},
		})
	}
	if err != nil {
		return fmt.Errorf("set flair on %s: %w", s.ID, err)
	}
	return nil
}

func (r *RedditClient) SetUserFlair(ctx context.Context, username, text string) error {
	if r.skipWrite("set user flair") {
		return nil
	}
	if _, err := r.post(ctx, "/r/"+r.subreddit+"/api/flair", url.Values{"name": {username}, "text": {text}}); err != nil {
		return fmt.Errorf("set flair for %s: %w", username, err)
	}
	return nil
}

// Reply posts a comment under parentFullname. In read-only mode it returns
// the comment that would have been posted, without an id.
func (r *RedditClient) Reply(ctx context.Context, parentFullname, body string) (*models.Comment, error) {
	if r.skipWrite("reply") {
		return &models.Comment{Author: r.username, ParentID: parentFullname, Body: body}, nil
	}
	resp, err := r.post(ctx, "/api/comment", url.Values{"thing_id": {parentFullname}, "text": {body}})
	if err != nil {
		return nil, fmt.Errorf("reply to %s: %w", parentFullname, err)
	}
	if strings.HasPrefix(parentFullname, models.KindComment) {
		r.cache.Mark(ctx, strings.TrimPrefix(parentFullname, models.KindComment))
	}
	if len(resp.JSON.Data.Things) == 0 {
		return &models.Comment{Author: r.username, ParentID: parentFullname, Body: body}, nil
	}
	var c redditComment
	if err := json.Unmarshal(resp.JSON.Data.Things[0].Data, &c); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	return c.toModel(), nil
}

func (r *RedditClient) EditComment(ctx context.Context, fullname, body string) error {
	if r.skipWrite("edit") {
		return nil
	}
	if _, err := r.post(ctx, "/api/editusertext", url.Values{"thing_id": {fullname}, "text": {body}}); err != nil {
		return fmt.Errorf("edit %s: %w", fullname, err)
	}
	return nil
}

func (r *RedditClient) DeleteComment(ctx context.Context, fullname string) error {
	if r.skipWrite("delete") {
		return nil
	}
	if err := r.do(ctx, http.MethodPost, "/api/del", nil, url.Values{"id": {fullname}}, nil); err != nil {
		return fmt.Errorf("delete %s: %w", fullname, err)
	}
	return nil
}

func (r *RedditClient) Approve(ctx context.Context, fullname string) error {
	if r.skipWrite("approve") {
		return nil
	}
	if err := r.do(ctx, http.MethodPost, "/api/approve", nil, url.Values{"id": {fullname}}, nil); err != nil {
		return fmt.Errorf("approve %s: %w", fullname, err)
	}
	return nil
}

func (r *RedditClient) CreatePost(ctx context.Context, title, body string, sticky bool) (*models.Submission, error) {
	post := &models.Submission{Author: r.username, Title: title, IsSelf: true, SelfText: body}
	if r.skipWrite("create post") {
		return post, nil
	}
	resp, err := r.post(ctx, "/api/submit", url.Values{
		"kind":  {"self"},
		"sr":    {r.subreddit},
		"title": {title},
		"text":  {body},
	})
	if err != nil {
		return nil, fmt.Errorf("submit %q: %w", title, err)
	}
	post.ID = resp.JSON.Data.ID
	post.URL = resp.JSON.Data.URL

	if sticky && resp.JSON.Data.Name != "" {
		if _, err := r.post(ctx, "/api/set_subreddit_sticky", url.Values{
			"id":    {resp.JSON.Data.Name},
			"state": {"true"},
			"num":   {"1"},
		}); err != nil {
			return post, fmt.Errorf("sticky %s: %w", resp.JSON.Data.Name, err)
		}
	}
	return post, nil
}

func isNotFound(err error) bool {
	return err != nil && errors.Is(err, ErrNotFound)
}
