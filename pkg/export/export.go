// Package export builds the JSON document written for a set of posts.
package export

import (
	"encoding/json"
	stderrors "errors"
	"regexp"
	"strings"
	"time"

	"github.com/rusq/fsadapter"

	"redditscraper/pkg/errors"
	"redditscraper/pkg/fetcher"
	"redditscraper/pkg/media"
	"redditscraper/pkg/reddit"
)

// ErrNothingToExport is returned when neither a selection nor a displayed
// post exists.
var ErrNothingToExport = stderrors.New("nothing to export")

const (
	ContentSelected  = "selected_posts"
	ContentDisplayed = "displayed_posts"

	SourceSearch    = "search"
	SourceSubreddit = "subreddit_fetch"

	defaultSourceName = "reddit_search"
)

type Document struct {
	SourceDetails   SourceDetails   `json:"source_details"`
	FetchParameters FetchParameters `json:"fetch_parameters"`
	ExportDetails   ExportDetails   `json:"export_details"`
	Posts           []Post          `json:"posts"`
}

type SourceDetails struct {
	Type               string  `json:"type"`
	Subreddit          *string `json:"subreddit"`
	MultipleSubreddits *string `json:"multiple_subreddits"`
	Scope              *string `json:"scope"`
	Query              *string `json:"query"`
}

type FetchParameters struct {
	Sort                string  `json:"sort"`
	TimeFilter          *string `json:"time_filter"`
	PostLimitRequested  int     `json:"post_limit_requested"`
	CommentLimitPerPost int     `json:"comment_limit_per_post"`
}

type ExportDetails struct {
	MediaFilterActive string `json:"media_filter_active"`
	ExportedContent   string `json:"exported_content"`
	Timestamp         string `json:"timestamp"`
	PostCount         int    `json:"post_count"`
}

type Post struct {
	ID                 string            `json:"id"`
	Title              string            `json:"title"`
	Author             string            `json:"author"`
	Subreddit          string            `json:"subreddit"`
	CreatedUTC         float64           `json:"created_utc"`
	Score              int               `json:"score"`
	UpvoteRatio        float64           `json:"upvote_ratio"`
	NumCommentsAPI     int               `json:"num_comments_api"`
	NumCommentsFetched int               `json:"num_comments_fetched"`
	Permalink          string            `json:"permalink"`
	URL                string            `json:"url"`
	IsSelf             bool              `json:"is_self"`
	Selftext           *string           `json:"selftext"`
	LinkFlairText      *string           `json:"link_flair_text"`
	PostHint           *string           `json:"post_hint"`
	MediaInfo          *media.Descriptor `json:"media_info"`
	Comments           []Comment         `json:"comments"`
}

type Comment struct {
	ID          string  `json:"id"`
	Author      string  `json:"author"`
	CreatedUTC  float64 `json:"created_utc"`
	Score       int     `json:"score"`
	Body        string  `json:"body"`
	IsSubmitter bool    `json:"is_submitter"`
	Permalink   string  `json:"permalink"`
}

// Input gathers everything the document is built from
type Input struct {
	Params       fetcher.Params
	Posts        []*reddit.Post
	Selected     bool
	Filter       string
	CommentLimit int
	Comments     func(postID string) []reddit.Comment
	Resolve      func(*reddit.Post) *media.Descriptor
	Now          time.Time
}

// Build assembles the document. Output depends only on in, so a fixed
// Now gives identical bytes.
func Build(in Input) (*Document, error) {
	if len(in.Posts) == 0 {
		return nil, ErrNothingToExport
	}

	doc := &Document{
		SourceDetails:   sourceDetails(in.Params),
		FetchParameters: fetchParameters(in.Params, in.CommentLimit),
		ExportDetails: ExportDetails{
			MediaFilterActive: filterName(in.Filter),
			ExportedContent:   ContentDisplayed,
			Timestamp:         Timestamp(in.Now),
			PostCount:         len(in.Posts),
		},
		Posts: make([]Post, 0, len(in.Posts)),
	}
	if in.Selected {
		doc.ExportDetails.ExportedContent = ContentSelected
	}

	for _, p := range in.Posts {
		var comments []reddit.Comment
		if in.Comments != nil {
			comments = in.Comments(p.ID)
		}
		var info *media.Descriptor
		if in.Resolve != nil {
			info = in.Resolve(p)
		}
		doc.Posts = append(doc.Posts, convertPost(p, comments, info))
	}
	return doc, nil
}

// Marshal encodes the document indented by two spaces
func Marshal(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.NewSerializationError(err)
	}
	return data, nil
}

// Write builds, encodes and stores the document under its generated name.
// Nothing is written if encoding fails.
func Write(fs fsadapter.FS, in Input) (string, error) {
	doc, err := Build(in)
	if err != nil {
		return "", err
	}
	data, err := Marshal(doc)
	if err != nil {
		return "", err
	}
	name := FileName(in.Params, in.Selected, in.Now)
	if err := fs.WriteFile(name, data, 0644); err != nil {
		return "", err
	}
	return name, nil
}

func convertPost(p *reddit.Post, comments []reddit.Comment, info *media.Descriptor) Post {
	out := Post{
		ID:                 p.ID,
		Title:              p.Title,
		Author:             p.Author,
		Subreddit:          p.Subreddit,
		CreatedUTC:         p.CreatedUTC,
		Score:              p.Score,
		UpvoteRatio:        p.UpvoteRatio,
		NumCommentsAPI:     p.NumComments,
		NumCommentsFetched: len(comments),
		Permalink:          reddit.AbsolutePermalink(p.Permalink),
		URL:                p.Link(),
		IsSelf:             p.IsSelf,
		LinkFlairText:      nonEmpty(p.LinkFlairText),
		PostHint:           optional(p.PostHint),
		MediaInfo:          info,
		Comments:           make([]Comment, 0, len(comments)),
	}
	if p.IsSelf {
		text := p.Selftext
		out.Selftext = &text
	}
	for _, c := range comments {
		out.Comments = append(out.Comments, Comment{
			ID:          c.ID,
			Author:      c.Author,
			CreatedUTC:  c.CreatedUTC,
			Score:       c.Score,
			Body:        c.Body,
			IsSubmitter: c.IsSubmitter,
			Permalink:   reddit.AbsolutePermalink(c.Permalink),
		})
	}
	return out
}

func sourceDetails(p fetcher.Params) SourceDetails {
	if p.Kind != fetcher.KindSearch {
		return SourceDetails{Type: SourceSubreddit, Subreddit: optional(p.Subreddit)}
	}
	sd := SourceDetails{
		Type:      SourceSearch,
		Subreddit: optional(p.Subreddit),
		Scope:     optional(string(p.Scope)),
		Query:     optional(p.Query),
	}
	if p.Scope == reddit.ScopeMultiple {
		sd.MultipleSubreddits = optional(reddit.JoinSubreddits(p.Subreddits))
	}
	return sd
}

func fetchParameters(p fetcher.Params, commentLimit int) FetchParameters {
	fp := FetchParameters{
		Sort:                p.Sort,
		PostLimitRequested:  p.Target,
		CommentLimitPerPost: commentLimit,
	}
	switch {
	case p.Kind == fetcher.KindSearch:
		fp.TimeFilter = optional(p.TimeFilter)
	case reddit.SortUsesTime(p.Sort):
		fp.TimeFilter = optional(p.TimeFilter)
	}
	return fp
}

var (
	unsafeSource = regexp.MustCompile(`[^a-zA-Z0-9_+]`)
	stampChars   = strings.NewReplacer(":", "-", ".", "-")
)

// Timestamp formats t as UTC with millisecond precision
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// FileStamp is Timestamp made safe for file names
func FileStamp(t time.Time) string {
	return stampChars.Replace(Timestamp(t))
}

// SourceName returns the sanitized source label, or fallback when the
// parameters name no subreddit.
func SourceName(p fetcher.Params, fallback string) string {
	src := p.Source()
	if src == "" {
		src = fallback
	}
	return unsafeSource.ReplaceAllString(src, "_")
}

// FileName returns reddit_export_<source>_<selected|displayed>_<stamp>.json
func FileName(p fetcher.Params, selected bool, now time.Time) string {
	kind := "displayed"
	if selected {
		kind = "selected"
	}
	return "reddit_export_" + SourceName(p, defaultSourceName) + "_" + kind + "_" + FileStamp(now) + ".json"
}

func filterName(f string) string {
	if f == "" {
		return "all"
	}
	return f
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
