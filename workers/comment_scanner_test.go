package workers

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"picturegame-bot/models"
	"picturegame-bot/services"
)

type fakeFeed struct {
	comments []*models.Comment
	reports  []*models.Report
	err      error
}

func (f *fakeFeed) NewComments(ctx context.Context, limit int) ([]*models.Comment, error) {
	return f.comments, f.err
}

func (f *fakeFeed) Reports(ctx context.Context) ([]*models.Report, error) {
	return f.reports, f.err
}

type fakeChecker struct {
	valid   map[string]bool
	errs    map[string]error
	checked []string
}

func (f *fakeChecker) IsValidWin(ctx context.Context, c *models.Comment) (bool, error) {
	f.checked = append(f.checked, c.ID)
	return f.valid[c.ID], f.errs[c.ID]
}

type fakeProcessor struct {
	errs      map[string]error
	processed []string
}

func (f *fakeProcessor) Process(ctx context.Context, c *models.Comment, overrides *services.ReplyOverrides) error {
	f.processed = append(f.processed, c.ID)
	return f.errs[c.ID]
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestCommentScannerFiltersAndOrders(t *testing.T) {
	feed := &fakeFeed{comments: []*models.Comment{
		{ID: "late", Author: "bob", IsSubmitter: true, Created: 300},
		{ID: "guess", Author: "alice", IsSubmitter: false, Created: 100},
		{ID: "early", Author: "bob", IsSubmitter: true, Created: 200},
		{ID: "bot", Author: "PictureGameBot", IsSubmitter: true, Created: 150},
	}}
	checker := &fakeChecker{valid: map[string]bool{"late": true, "early": true}}
	processor := &fakeProcessor{}

	s := NewCommentScanner(feed, checker, processor, "picturegamebot", testLogger())
	if err := s.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got := checker.checked; len(got) != 2 || got[0] != "early" || got[1] != "late" {
		t.Fatalf("checked = %v, want [early late]", got)
	}
	if got := processor.processed; len(got) != 2 || got[0] != "early" || got[1] != "late" {
		t.Fatalf("processed = %v, want [early late]", got)
	}
}

func TestCommentScannerContinuesPastFailures(t *testing.T) {
	feed := &fakeFeed{comments: []*models.Comment{
		{ID: "a", Author: "bob", IsSubmitter: true, Created: 1},
		{ID: "b", Author: "bob", IsSubmitter: true, Created: 2},
		{ID: "c", Author: "bob", IsSubmitter: true, Created: 3},
		{ID: "d", Author: "bob", IsSubmitter: true, Created: 4},
	}}
	checker := &fakeChecker{
		valid: map[string]bool{"b": true, "c": true, "d": true},
		errs:  map[string]error{"a": errors.New("reddit down")},
	}
	processor := &fakeProcessor{errs: map[string]error{
		"b": &services.DeletedParticipantError{PostID: "p1", Role: models.RoleGuesser},
		"c": errors.New("flair failed"),
	}}

	s := NewCommentScanner(feed, checker, processor, "bot", testLogger())
	if err := s.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(checker.checked) != 4 {
		t.Fatalf("checked = %v", checker.checked)
	}
	if got := processor.processed; len(got) != 3 || got[2] != "d" {
		t.Fatalf("processed = %v, want [b c d]", got)
	}
}

func TestCommentScannerFeedError(t *testing.T) {
	feed := &fakeFeed{err: errors.New("timeout")}
	s := NewCommentScanner(feed, &fakeChecker{}, &fakeProcessor{}, "bot", testLogger())
	if err := s.Scan(context.Background()); err == nil {
		t.Fatal("expected feed error")
	}
}

func TestCommentScannerStopsOnCancel(t *testing.T) {
	feed := &fakeFeed{comments: []*models.Comment{
		{ID: "a", Author: "bob", IsSubmitter: true},
	}}
	checker := &fakeChecker{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewCommentScanner(feed, checker, &fakeProcessor{}, "bot", testLogger())
	if err := s.Scan(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if len(checker.checked) != 0 {
		t.Fatalf("checked = %v", checker.checked)
	}
}
