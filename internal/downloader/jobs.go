package downloader

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"redditscraper/pkg/media"
	"redditscraper/pkg/reddit"
)

// Job is one media file to place in the archive
type Job struct {
	URL      string
	Filename string
	PostID   string
	Kind     media.Kind
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// BuildJobs lists the downloadable items of posts in order. Items whose
// URL cannot be parsed produce a line in invalid instead of a job.
func BuildJobs(posts []*reddit.Post, resolve func(*reddit.Post) *media.Descriptor) (jobs []Job, invalid []string) {
	for _, p := range posts {
		d := resolve(p)
		if d == nil {
			continue
		}
		for i, item := range d.Items {
			if item.URL == "" || (item.Kind != media.KindImage && item.Kind != media.KindVideo) {
				continue
			}
			name, err := Filename(p, i, item)
			if err != nil {
				invalid = append(invalid, fmt.Sprintf("Invalid URL (%s): %s...", p.ID, prefix(item.URL, 50)))
				continue
			}
			jobs = append(jobs, Job{URL: item.URL, Filename: name, PostID: p.ID, Kind: item.Kind})
		}
	}
	return jobs, invalid
}

// Filename returns <subreddit>_<postID>_<index>_<base><ext> for an item.
// ext is added only when base has none.
func Filename(p *reddit.Post, index int, item media.Item) (string, error) {
	u, err := url.Parse(item.URL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("not an absolute URL: %q", item.URL)
	}

	path := u.EscapedPath()
	base := path[strings.LastIndex(path, "/")+1:]
	if base == "" {
		base = fmt.Sprintf("%s_item_%d", p.ID, index)
	}
	base = unsafeName.ReplaceAllString(base, "_")

	ext := ""
	if !strings.Contains(base, ".") {
		ext = ".jpg"
		if item.Kind == media.KindVideo {
			ext = ".mp4"
		}
	}
	return fmt.Sprintf("%s_%s_%d_%s%s", p.Subreddit, p.ID, index, base, ext), nil
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
