package export

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rusq/fsadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redditscraper/pkg/errors"
	"redditscraper/pkg/fetcher"
	"redditscraper/pkg/media"
	"redditscraper/pkg/reddit"
)

var fixedNow = time.Date(2024, 3, 9, 14, 5, 7, 123_000_000, time.UTC)

func samplePosts() []*reddit.Post {
	flair := "OC"
	return []*reddit.Post{
		{
			ID: "abc", Title: "Sunset", Author: "alice", Subreddit: "pics",
			CreatedUTC: 1700000000, Score: 42, UpvoteRatio: 0.97, NumComments: 3,
			Permalink: "/r/pics/comments/abc/sunset/", URL: "https://i.redd.it/a.jpg",
			Selftext: "ignored", LinkFlairText: &flair, PostHint: "image",
		},
		{
			ID: "def", Title: "Question", Author: "bob", Subreddit: "pics",
			Permalink: "/r/pics/comments/def/q/", URL: "https://reddit.com/r/pics/comments/def/q/",
			IsSelf: true, Selftext: "body text",
		},
	}
}

func sampleInput() Input {
	comments := map[string][]reddit.Comment{
		"abc": {{ID: "c1", Author: "carol", Body: "nice", Score: 5, IsSubmitter: false, Permalink: "/r/pics/comments/abc/sunset/c1/"}},
	}
	return Input{
		Params:       fetcher.Params{Kind: fetcher.KindListing, Subreddit: "pics", Sort: reddit.SortTop, TimeFilter: "week", Target: 50},
		Posts:        samplePosts(),
		Filter:       "image",
		CommentLimit: 20,
		Comments:     func(id string) []reddit.Comment { return comments[id] },
		Resolve: func(p *reddit.Post) *media.Descriptor {
			if p.IsSelf {
				return nil
			}
			return &media.Descriptor{Kind: media.KindImage, URL: p.URL, Items: []media.Item{{ID: p.ID, URL: p.URL, Kind: media.KindImage}}}
		},
		Now: fixedNow,
	}
}

func TestBuildListing(t *testing.T) {
	doc, err := Build(sampleInput())
	require.NoError(t, err)

	assert.Equal(t, SourceSubreddit, doc.SourceDetails.Type)
	require.NotNil(t, doc.SourceDetails.Subreddit)
	assert.Equal(t, "pics", *doc.SourceDetails.Subreddit)
	assert.Nil(t, doc.SourceDetails.Query)
	assert.Nil(t, doc.SourceDetails.Scope)

	assert.Equal(t, "top", doc.FetchParameters.Sort)
	require.NotNil(t, doc.FetchParameters.TimeFilter)
	assert.Equal(t, "week", *doc.FetchParameters.TimeFilter)
	assert.Equal(t, 50, doc.FetchParameters.PostLimitRequested)
	assert.Equal(t, 20, doc.FetchParameters.CommentLimitPerPost)

	assert.Equal(t, ContentDisplayed, doc.ExportDetails.ExportedContent)
	assert.Equal(t, "2024-03-09T14:05:07.123Z", doc.ExportDetails.Timestamp)
	assert.Equal(t, 2, doc.ExportDetails.PostCount)
	assert.Equal(t, "image", doc.ExportDetails.MediaFilterActive)

	first := doc.Posts[0]
	assert.Equal(t, "https://reddit.com/r/pics/comments/abc/sunset/", first.Permalink)
	assert.Nil(t, first.Selftext, "link posts carry no selftext")
	assert.Equal(t, 3, first.NumCommentsAPI)
	assert.Equal(t, 1, first.NumCommentsFetched)
	require.Len(t, first.Comments, 1)
	assert.Equal(t, "https://reddit.com/r/pics/comments/abc/sunset/c1/", first.Comments[0].Permalink)
	require.NotNil(t, first.MediaInfo)
	assert.Equal(t, media.KindImage, first.MediaInfo.Kind)

	second := doc.Posts[1]
	require.NotNil(t, second.Selftext)
	assert.Equal(t, "body text", *second.Selftext)
	assert.Nil(t, second.LinkFlairText)
	assert.Nil(t, second.PostHint)
	assert.NotNil(t, second.Comments)
	assert.Empty(t, second.Comments)
}

func TestBuildHotOmitsTimeFilter(t *testing.T) {
	in := sampleInput()
	in.Params.Sort = reddit.SortHot
	doc, err := Build(in)
	require.NoError(t, err)
	assert.Nil(t, doc.FetchParameters.TimeFilter)
}

func TestBuildSearch(t *testing.T) {
	in := sampleInput()
	in.Selected = true
	in.Params = fetcher.Params{
		Kind: fetcher.KindSearch, Query: "cats", Scope: reddit.ScopeMultiple,
		Subreddits: []string{"aww", "cats"}, Sort: "relevance", TimeFilter: "all", Target: 25,
	}

	doc, err := Build(in)
	require.NoError(t, err)

	sd := doc.SourceDetails
	assert.Equal(t, SourceSearch, sd.Type)
	require.NotNil(t, sd.MultipleSubreddits)
	assert.Equal(t, "aww+cats", *sd.MultipleSubreddits)
	assert.Equal(t, "multiple", *sd.Scope)
	assert.Equal(t, "cats", *sd.Query)
	assert.Nil(t, sd.Subreddit)
	assert.Equal(t, "all", *doc.FetchParameters.TimeFilter)
	assert.Equal(t, ContentSelected, doc.ExportDetails.ExportedContent)
}

func TestBuildEmpty(t *testing.T) {
	in := sampleInput()
	in.Posts = nil
	_, err := Build(in)
	assert.ErrorIs(t, err, ErrNothingToExport)
}

func TestMarshalDeterministic(t *testing.T) {
	a, err := Build(sampleInput())
	require.NoError(t, err)
	b, err := Build(sampleInput())
	require.NoError(t, err)

	ja, err := Marshal(a)
	require.NoError(t, err)
	jb, err := Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, ja, jb)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(ja, &raw))
	posts := raw["posts"].([]any)
	second := posts[1].(map[string]any)
	assert.Contains(t, second, "media_info")
	assert.Nil(t, second["media_info"])
	first := posts[0].(map[string]any)
	assert.Contains(t, first, "selftext")
	assert.Nil(t, first["selftext"])
}

func TestMarshalFailure(t *testing.T) {
	in := sampleInput()
	in.Posts[0].UpvoteRatio = math.NaN()
	doc, err := Build(in)
	require.NoError(t, err)

	_, err = Marshal(doc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrorTypeSerialization))
}

func TestWriteSkipsFileOnFailure(t *testing.T) {
	dir := t.TempDir()
	fs := fsadapter.NewDirectory(dir)

	in := sampleInput()
	in.Posts[0].UpvoteRatio = math.Inf(1)
	_, err := Write(fs, in)
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	name, err := Write(fsadapter.NewDirectory(dir), sampleInput())
	require.NoError(t, err)

	assert.Equal(t, "reddit_export_pics_displayed_2024-03-09T14-05-07-123Z.json", name)
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"exported_content": "displayed_posts"`)
}

func TestFileName(t *testing.T) {
	tests := []struct {
		name     string
		params   fetcher.Params
		selected bool
		want     string
	}{
		{"subreddit", fetcher.Params{Kind: fetcher.KindListing, Subreddit: "golang"}, false,
			"reddit_export_golang_displayed_2024-03-09T14-05-07-123Z.json"},
		{"multiple keeps plus", fetcher.Params{Kind: fetcher.KindSearch, Scope: reddit.ScopeMultiple, Subreddits: []string{"a", "b"}}, true,
			"reddit_export_a+b_selected_2024-03-09T14-05-07-123Z.json"},
		{"global search", fetcher.Params{Kind: fetcher.KindSearch, Scope: reddit.ScopeAll, Query: "x"}, false,
			"reddit_export_reddit_search_displayed_2024-03-09T14-05-07-123Z.json"},
		{"sanitized", fetcher.Params{Kind: fetcher.KindListing, Subreddit: "we-ird.name"}, false,
			"reddit_export_we_ird_name_displayed_2024-03-09T14-05-07-123Z.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.params, tt.selected, fixedNow))
		})
	}
}
