// Package media classifies Reddit posts into a uniform media descriptor.
package media

import (
	"strings"

	"redditscraper/pkg/reddit"
)

type Kind string

const (
	KindImage   Kind = "image"
	KindVideo   Kind = "video"
	KindGallery Kind = "gallery"
)

// Item is one downloadable media file
type Item struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail"`
	Kind      Kind   `json:"type"`
}

// Descriptor is the normalized media of a post. Items is never empty.
type Descriptor struct {
	Kind  Kind   `json:"type"`
	URL   string `json:"url"`
	Items []Item `json:"items"`
}

// tier inspects one shape of payload; nil passes to the next tier
type tier func(*reddit.Post) *Descriptor

var (
	videoExts = []string{".mp4", ".mov", ".webm"}
	imageExts = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

	// thumbnail values Reddit uses when there is no thumbnail
	thumbnailSentinels = map[string]bool{
		"":        true,
		"default": true,
		"self":    true,
		"nsfw":    true,
		"spoiler": true,
		"image":   true,
	}
)

var resolve = firstOf(galleryTier, videoTier, imageTier)

// Resolve returns the media descriptor of a post, or nil when the post
// carries no recognizable media. It never panics.
func Resolve(post *reddit.Post) *Descriptor {
	if post == nil || post.MalformedMedia {
		return nil
	}
	return resolve(post)
}

// firstOf returns the first non-nil tier result. A panicking tier
// makes the whole resolution nil.
func firstOf(tiers ...tier) tier {
	return func(post *reddit.Post) (d *Descriptor) {
		defer func() {
			if recover() != nil {
				d = nil
			}
		}()
		for _, t := range tiers {
			if res := t(post); res != nil && len(res.Items) > 0 {
				return res
			}
		}
		return nil
	}
}

func galleryTier(post *reddit.Post) *Descriptor {
	if !post.IsGallery || post.GalleryData == nil || len(post.GalleryData.Items) == 0 || len(post.MediaMetadata) == 0 {
		return nil
	}

	items := make([]Item, 0, len(post.GalleryData.Items))
	for _, gi := range post.GalleryData.Items {
		meta, ok := post.MediaMetadata[gi.MediaID]
		if !ok || meta.Status != "valid" {
			continue
		}

		best, kind := "", KindImage
		if meta.S != nil {
			switch {
			case meta.S.MP4 != "":
				best, kind = meta.S.MP4, KindVideo
			case meta.S.GIF != "":
				best = meta.S.GIF
			case meta.S.U != "":
				best = meta.S.U
			}
		}
		if best == "" && len(meta.P) > 0 {
			best = meta.P[len(meta.P)-1].U
		}
		if best == "" {
			continue
		}

		thumb := best
		if len(meta.P) > 0 && meta.P[0].U != "" {
			thumb = meta.P[0].U
		} else if meta.T != "" {
			thumb = meta.T
		}

		id := meta.ID
		if id == "" {
			id = gi.MediaID
		}
		items = append(items, Item{
			ID:        id,
			URL:       Unescape(best),
			Thumbnail: Unescape(thumb),
			Kind:      kind,
		})
	}

	if len(items) == 0 {
		return nil
	}
	return &Descriptor{Kind: KindGallery, URL: Unescape(post.URL), Items: items}
}

func videoTier(post *reddit.Post) *Descriptor {
	var src string
	rv := redditVideo(post)
	switch {
	case post.IsVideo && rv != nil:
		src = rv.FallbackURL
	case post.PostHint == "hosted:video" && rv != nil:
		src = rv.FallbackURL
	case post.PostHint == "rich:video" && post.Preview != nil && post.Preview.RedditVideoPreview != nil:
		src = post.Preview.RedditVideoPreview.FallbackURL
	case hasExt(post.Link(), videoExts):
		src = post.Link()
	}
	if src == "" {
		return nil
	}

	u := Unescape(src)
	thumb := firstNonEmpty(
		postThumbnail(post),
		previewSource(post),
		previewResolution(post, -1),
		u,
	)
	return &Descriptor{
		Kind:  KindVideo,
		URL:   u,
		Items: []Item{{ID: post.ID + "_video", URL: u, Thumbnail: thumb, Kind: KindVideo}},
	}
}

func imageTier(post *reddit.Post) *Descriptor {
	var src string
	switch {
	case post.PostHint == "image":
		src = post.Link()
	case hasExt(post.Link(), imageExts):
		src = post.Link()
	default:
		if p := previewSource(post); hasExt(p, imageExts) {
			src = p
		}
	}
	if src == "" {
		return nil
	}

	u := Unescape(src)
	thumb := firstNonEmpty(postThumbnail(post), previewResolution(post, 0), u)
	return &Descriptor{
		Kind:  KindImage,
		URL:   u,
		Items: []Item{{ID: post.ID + "_image", URL: u, Thumbnail: thumb, Kind: KindImage}},
	}
}

func redditVideo(post *reddit.Post) *reddit.RedditVideo {
	if post.Media == nil {
		return nil
	}
	return post.Media.RedditVideo
}

func postThumbnail(post *reddit.Post) string {
	t := Unescape(post.Thumbnail)
	if thumbnailSentinels[t] {
		return ""
	}
	return t
}

func previewSource(post *reddit.Post) string {
	if post.Preview == nil || len(post.Preview.Images) == 0 || post.Preview.Images[0].Source == nil {
		return ""
	}
	return Unescape(post.Preview.Images[0].Source.URL)
}

// previewResolution returns resolutions[i] of the first preview image;
// a negative index counts from the end
func previewResolution(post *reddit.Post, i int) string {
	if post.Preview == nil || len(post.Preview.Images) == 0 {
		return ""
	}
	res := post.Preview.Images[0].Resolutions
	if i < 0 {
		i += len(res)
	}
	if i < 0 || i >= len(res) {
		return ""
	}
	return Unescape(res[i].URL)
}

// hasExt matches the end of the whole unescaped URL, so a link with a
// query string never classifies
func hasExt(raw string, exts []string) bool {
	s := strings.ToLower(Unescape(raw))
	for _, ext := range exts {
		if strings.HasSuffix(s, ext) {
			return true
		}
	}
	return false
}

// Unescape reverses the HTML escaping Reddit applies to URLs
func Unescape(s string) string {
	return strings.ReplaceAll(s, "&amp;", "&")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
