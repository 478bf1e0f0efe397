package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"

	"picturegame-bot/config"
	"picturegame-bot/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeReply struct {
	Parent string
	Body   string
}

// fakeForum is an in-memory ForumClient that records every write.
type fakeForum struct {
	bot      string
	readOnly bool

	comments map[string]*models.Comment    // by fullname
	posts    map[string]*models.Submission // by id
	replied  map[string]bool
	deleted  map[string]bool

	postFlair   map[string]string
	userFlair   map[string]string
	replies     []fakeReply
	edits       map[string]string
	removed     []string
	approved    []string
	created     []*models.Submission
	failFlairOn string
}

func newFakeForum() *fakeForum {
	return &fakeForum{
		bot:       "picturegame-bot",
		comments:  make(map[string]*models.Comment),
		posts:     make(map[string]*models.Submission),
		replied:   make(map[string]bool),
		deleted:   make(map[string]bool),
		postFlair: make(map[string]string),
		userFlair: make(map[string]string),
		edits:     make(map[string]string),
	}
}

func (f *fakeForum) addPost(s *models.Submission) *models.Submission {
	f.posts[s.ID] = s
	return s
}

func (f *fakeForum) addComment(c *models.Comment) *models.Comment {
	f.comments[c.Fullname()] = c
	return c
}

func (f *fakeForum) writes() int {
	return len(f.postFlair) + len(f.userFlair) + len(f.replies) + len(f.edits) +
		len(f.removed) + len(f.approved) + len(f.created)
}

func (f *fakeForum) Username() string { return f.bot }
func (f *fakeForum) ReadOnly() bool   { return f.readOnly }

func (f *fakeForum) IsCommentAReply(c *models.Comment) bool { return c.IsReply() }

func (f *fakeForum) HasReplied(_ context.Context, c *models.Comment) (bool, error) {
	return f.replied[c.ID], nil
}

func (f *fakeForum) IsDeleted(_ context.Context, fullname string) (bool, error) {
	return f.deleted[fullname], nil
}

func (f *fakeForum) FetchComment(_ context.Context, fullname string) (*models.Comment, error) {
	c, ok := f.comments[fullname]
	if !ok {
		return nil, fmt.Errorf("%s: %w", fullname, ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (f *fakeForum) FetchSubmission(_ context.Context, id string) (*models.Submission, error) {
	s, ok := f.posts[strings.TrimPrefix(id, models.KindLink)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (f *fakeForum) FetchPostFromComment(ctx context.Context, c *models.Comment) (*models.Submission, error) {
	return f.FetchSubmission(ctx, c.SubmissionID())
}

func (f *fakeForum) SetPostFlair(_ context.Context, s *models.Submission, templateID string) error {
	if f.readOnly {
		return nil
	}
	if s.ID == f.failFlairOn {
		return fmt.Errorf("flair rejected")
	}
	f.postFlair[s.ID] = templateID
	if p, ok := f.posts[s.ID]; ok {
		p.Flair = models.Flair{TemplateID: templateID}
	}
	return nil
}

func (f *fakeForum) SetUserFlair(_ context.Context, username, text string) error {
	if f.readOnly {
		return nil
	}
	f.userFlair[username] = text
	return nil
}

func (f *fakeForum) Reply(_ context.Context, parent, body string) (*models.Comment, error) {
	if f.readOnly {
		return &models.Comment{Author: f.bot, ParentID: parent, Body: body}, nil
	}
	f.replies = append(f.replies, fakeReply{Parent: parent, Body: body})
	return &models.Comment{ID: fmt.Sprintf("r%d", len(f.replies)), Author: f.bot, ParentID: parent, Body: body}, nil
}

func (f *fakeForum) EditComment(_ context.Context, fullname, body string) error {
	if f.readOnly {
		return nil
	}
	f.edits[fullname] = body
	if c, ok := f.comments[fullname]; ok {
		c.Body = body
	}
	return nil
}

func (f *fakeForum) DeleteComment(_ context.Context, fullname string) error {
	if f.readOnly {
		return nil
	}
	f.removed = append(f.removed, fullname)
	return nil
}

func (f *fakeForum) Approve(_ context.Context, fullname string) error {
	if f.readOnly {
		return nil
	}
	f.approved = append(f.approved, fullname)
	return nil
}

func (f *fakeForum) CreatePost(_ context.Context, title, body string, _ bool) (*models.Submission, error) {
	s := &models.Submission{Author: f.bot, Title: title, IsSelf: true, SelfText: body}
	if f.readOnly {
		return s, nil
	}
	s.ID = fmt.Sprintf("p%d", len(f.created)+1)
	f.created = append(f.created, s)
	return s, nil
}

type fakeSearch struct {
	result SearchResult
	calls  []string
}

func (s *fakeSearch) Search(_ context.Context, imageURL string) SearchResult {
	s.calls = append(s.calls, imageURL)
	return s.result
}

func (s *fakeSearch) CheckFound(ctx context.Context, imageURL string) bool {
	return s.Search(ctx, imageURL).Found
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(&models.Win{}, &models.PointAward{}, &models.LegacyImport{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func testTemplates() config.LinkFlairTemplates {
	return config.LinkFlairTemplates{
		Easy: "tpl-easy",
		Hard: "tpl-hard",
		Meta: "tpl-meta",
		Identified: config.IdentifiedTemplates{
			Normal: "tpl-identified",
			Easy:   "tpl-identified-easy",
			Hard:   "tpl-identified-hard",
		},
	}
}

func testConfig() config.Config {
	return config.Config{
		Subreddit:          "PictureGame",
		LinkFlairTemplates: testTemplates(),
	}
}

// testBot bundles the services wired the way main wires them.
type testBot struct {
	forum     *fakeForum
	search    *fakeSearch
	ledger    *LedgerService
	rules     *ScoreRules
	scores    *ScoreManager
	checker   *WinChecker
	processor *WinProcessor
	commands  *ModCommands
}

func newTestBot(t *testing.T) *testBot {
	t.Helper()
	cfg := testConfig()
	b := &testBot{
		forum:  newFakeForum(),
		search: &fakeSearch{},
		ledger: NewLedgerService(newTestDB(t)),
		rules:  NewScoreRules(cfg.Points),
	}
	b.scores = NewScoreManager(b.rules, b.ledger, b.forum, testLogger())
	b.checker = NewWinChecker(b.forum, b.scores, cfg, testLogger())
	b.processor = NewWinProcessor(b.forum, b.search, b.scores, cfg, testLogger())
	b.commands = NewModCommands(b.forum, b.rules, b.scores, b.processor, cfg, testLogger())
	return b
}

// seedThread creates a post by bob, a guess by alice and bob's "Correct!"
// reply to it, and returns the confirmation.
func (b *testBot) seedThread() *models.Comment {
	b.forum.addPost(&models.Submission{
		ID:      "abc123",
		Author:  "bob",
		Title:   "Where is this?",
		URL:     "https://i.imgur.com/xyz.jpg",
		Created: 1700000000,
	})
	b.forum.addComment(&models.Comment{
		ID:       "guess1",
		Author:   "alice",
		ParentID: "t3_abc123",
		LinkID:   "t3_abc123",
		Body:     "Is it the Eiffel Tower?",
		Created:  1700000600,
	})
	return b.forum.addComment(&models.Comment{
		ID:          "conf1",
		Author:      "bob",
		ParentID:    "t1_guess1",
		LinkID:      "t3_abc123",
		Body:        "Correct!",
		IsSubmitter: true,
		Created:     1700000700,
	})
}

// lastReply returns the bot's latest reply as a forum comment so commands can
// be run against it.
func (b *testBot) lastReply(t *testing.T) *models.Comment {
	t.Helper()
	if len(b.forum.replies) == 0 {
		t.Fatal("bot has not replied")
	}
	r := b.forum.replies[len(b.forum.replies)-1]
	return b.forum.addComment(&models.Comment{
		ID:       fmt.Sprintf("bot%d", len(b.forum.replies)),
		Author:   b.forum.bot,
		ParentID: r.Parent,
		LinkID:   "t3_abc123",
		Body:     r.Body,
	})
}

func (b *testBot) score(t *testing.T, username string) int {
	t.Helper()
	n, err := b.scores.GetUserPoints(context.Background(), username)
	if err != nil {
		t.Fatalf("GetUserPoints(%s): %v", username, err)
	}
	return n
}
