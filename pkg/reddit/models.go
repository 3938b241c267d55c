package reddit

import "encoding/json"

// Post is the subset of a Reddit link ("t3") payload the explorer reads.
// Optional nested objects are pointers so absence is distinguishable.
type Post struct {
	ID                  string                   `json:"id"`
	Name                string                   `json:"name"`
	Title               string                   `json:"title"`
	Author              string                   `json:"author"`
	Subreddit           string                   `json:"subreddit"`
	CreatedUTC          float64                  `json:"created_utc"`
	Score               int                      `json:"score"`
	UpvoteRatio         float64                  `json:"upvote_ratio"`
	NumComments         int                      `json:"num_comments"`
	Permalink           string                   `json:"permalink"`
	URL                 string                   `json:"url"`
	URLOverriddenByDest string                   `json:"url_overridden_by_dest,omitempty"`
	IsSelf              bool                     `json:"is_self"`
	Selftext            string                   `json:"selftext"`
	LinkFlairText       *string                  `json:"link_flair_text"`
	PostHint            string                   `json:"post_hint,omitempty"`
	Thumbnail           string                   `json:"thumbnail,omitempty"`
	Over18              bool                     `json:"over_18"`
	Stickied            bool                     `json:"stickied"`
	IsVideo             bool                     `json:"is_video"`
	IsGallery           bool                     `json:"is_gallery,omitempty"`
	Media               *Media                   `json:"media,omitempty"`
	Preview             *Preview                 `json:"preview,omitempty"`
	GalleryData         *GalleryData             `json:"gallery_data,omitempty"`
	MediaMetadata       map[string]MediaMetadata `json:"media_metadata,omitempty"`

	// MalformedMedia is set when the media payload could not be decoded
	// and was dropped; such a post carries no media.
	MalformedMedia bool `json:"-"`
}

// Link returns the outbound link, preferring the destination override
func (p *Post) Link() string {
	if p.URLOverriddenByDest != "" {
		return p.URLOverriddenByDest
	}
	return p.URL
}

type Media struct {
	RedditVideo *RedditVideo `json:"reddit_video,omitempty"`
}

type RedditVideo struct {
	FallbackURL string `json:"fallback_url"`
	HLSURL      string `json:"hls_url,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Duration    int    `json:"duration,omitempty"`
}

type Preview struct {
	Images             []PreviewImage `json:"images"`
	RedditVideoPreview *RedditVideo   `json:"reddit_video_preview,omitempty"`
	Enabled            bool           `json:"enabled"`
}

type PreviewImage struct {
	ID          string        `json:"id,omitempty"`
	Source      *ImageSource  `json:"source,omitempty"`
	Resolutions []ImageSource `json:"resolutions"`
}

type ImageSource struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type GalleryData struct {
	Items []GalleryItem `json:"items"`
}

type GalleryItem struct {
	MediaID string      `json:"media_id"`
	ID      json.Number `json:"id,omitempty"`
	Caption string      `json:"caption,omitempty"`
}

// MediaMetadata describes one gallery entry. S is the full-size source,
// P holds the preview renditions in ascending size.
type MediaMetadata struct {
	ID     string           `json:"id,omitempty"`
	Status string           `json:"status"`
	Kind   string           `json:"e,omitempty"`
	MIME   string           `json:"m,omitempty"`
	S      *MediaRendition  `json:"s,omitempty"`
	P      []MediaRendition `json:"p,omitempty"`
	T      string           `json:"t,omitempty"`
}

// MediaRendition is one size of a gallery entry; u, gif and mp4 are
// alternative encodings of the same frame.
type MediaRendition struct {
	U   string `json:"u,omitempty"`
	GIF string `json:"gif,omitempty"`
	MP4 string `json:"mp4,omitempty"`
	X   int    `json:"x,omitempty"`
	Y   int    `json:"y,omitempty"`
}

// Comment is a top-level ("t1") comment
type Comment struct {
	ID          string  `json:"id"`
	Author      string  `json:"author"`
	Body        string  `json:"body"`
	CreatedUTC  float64 `json:"created_utc"`
	Score       int     `json:"score"`
	IsSubmitter bool    `json:"is_submitter"`
	Permalink   string  `json:"permalink"`
	Stickied    bool    `json:"stickied"`
}

// Page is one decoded listing response
type Page struct {
	Posts []*Post
	// After is the continuation cursor; empty means the source is exhausted
	After string
}

// mediaFields are the payload keys dropped when a post fails to decode
var mediaFields = []string{"media", "preview", "gallery_data", "media_metadata"}

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type listingEnvelope struct {
	Kind string `json:"kind"`
	Data *struct {
		After    *string `json:"after"`
		Children []thing `json:"children"`
	} `json:"data"`
}

type apiErrorBody struct {
	Message          string `json:"message"`
	Error            any    `json:"error"`
	ErrorDescription string `json:"error_description"`
}
