package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"redditscraper/pkg/comments"
	"redditscraper/pkg/media"
	"redditscraper/pkg/reddit"
	"redditscraper/pkg/selection"
)

// ListOptions controls how PrintPosts decorates each post
type ListOptions struct {
	Selected func(id string) bool
	Resolve  func(*reddit.Post) *media.Descriptor
	Thread   func(id string) comments.Thread
	Now      time.Time
}

// FilterLabel is the human name of a media filter
func FilterLabel(f selection.Filter) string {
	switch f {
	case selection.FilterImage:
		return "Images & Galleries"
	case selection.FilterVideo:
		return "Videos"
	default:
		return "All Posts"
	}
}

// MediaLabel describes the media of a post, or "" when it has none
func MediaLabel(d *media.Descriptor) string {
	if d == nil {
		return ""
	}
	if d.Kind == media.KindGallery {
		return fmt.Sprintf("Gallery (%d items)", len(d.Items))
	}
	return Capitalize(string(d.Kind))
}

// PrintPosts writes one block per post: a header line with selection
// mark, id, subreddit, author and age, the title, and a stats line.
func PrintPosts(w io.Writer, posts []*reddit.Post, opts ListOptions) {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	for _, p := range posts {
		mark := "[ ]"
		if opts.Selected != nil && opts.Selected(p.ID) {
			mark = Green("[x]")
		}
		fmt.Fprintf(w, "%s %s  %s  %s  %s\n",
			mark,
			Yellow(p.ID),
			Cyan("r/"+p.Subreddit),
			Dim("u/"+p.Author),
			Dim(RelativeTime(p.CreatedUTC, opts.Now)),
		)
		fmt.Fprintf(w, "    %s\n", p.Title)

		stats := []string{
			fmt.Sprintf("%s pts (%.0f%%)", FormatCount(p.Score), p.UpvoteRatio*100),
			fmt.Sprintf("%s comments", FormatCount(p.NumComments)),
		}
		if opts.Resolve != nil {
			if label := MediaLabel(opts.Resolve(p)); label != "" {
				stats = append(stats, Magenta(label))
			}
		}
		if opts.Thread != nil {
			if s := threadLabel(opts.Thread(p.ID)); s != "" {
				stats = append(stats, s)
			}
		}
		fmt.Fprintf(w, "    %s\n", strings.Join(stats, " · "))
	}
}

func threadLabel(t comments.Thread) string {
	switch t.State {
	case comments.Loaded:
		if !t.Visible {
			return Dim("comments hidden")
		}
		return Green(fmt.Sprintf("%d comments loaded", len(t.Comments)))
	case comments.Loading:
		return Dim("loading comments")
	case comments.Failed:
		return Red("comments failed: " + t.Err)
	}
	return ""
}

// PrintComments writes a loaded thread, indented under its post
func PrintComments(w io.Writer, t comments.Thread, now time.Time) {
	switch {
	case t.State == comments.Failed:
		fmt.Fprintf(w, "    %s\n", Red(t.Err))
		return
	case len(t.Comments) == 0:
		fmt.Fprintf(w, "    %s\n", Dim("No comments found."))
		return
	}
	for _, c := range t.Comments {
		author := "u/" + c.Author
		if c.IsSubmitter {
			author += " (OP)"
		}
		fmt.Fprintf(w, "    %s  %s  %s\n", Cyan(author), Dim(FormatCount(c.Score)+" pts"), Dim(RelativeTime(c.CreatedUTC, now)))
		for _, line := range strings.Split(strings.TrimSpace(c.Body), "\n") {
			fmt.Fprintf(w, "      %s\n", line)
		}
	}
}
