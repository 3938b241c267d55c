// Package selection tracks which posts the user picked and derives the
// filtered views shown and exported.
package selection

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"redditscraper/pkg/media"
	"redditscraper/pkg/reddit"
)

// Filter restricts the displayed posts by media kind
type Filter string

const (
	FilterAll   Filter = "all"
	FilterImage Filter = "image"
	FilterVideo Filter = "video"
)

// ParseFilter accepts all, image or video; empty means all
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FilterAll:
		return FilterAll, nil
	case FilterImage, FilterVideo:
		return f, nil
	default:
		return "", fmt.Errorf("unknown media filter %q (want all, image or video)", s)
	}
}

// Matches reports whether a post with descriptor d passes the filter.
// Image includes galleries; video matches single videos only.
func (f Filter) Matches(d *media.Descriptor) bool {
	switch f {
	case FilterImage:
		return d != nil && (d.Kind == media.KindImage || d.Kind == media.KindGallery)
	case FilterVideo:
		return d != nil && d.Kind == media.KindVideo
	default:
		return true
	}
}

// ResolveFunc maps a post to its media descriptor
type ResolveFunc func(*reddit.Post) *media.Descriptor

// Displayed returns the posts passing the filter, in collection order
func Displayed(posts []*reddit.Post, filter Filter, resolve ResolveFunc) []*reddit.Post {
	if filter == FilterAll || filter == "" {
		return posts
	}
	out := make([]*reddit.Post, 0, len(posts))
	for _, p := range posts {
		if filter.Matches(resolve(p)) {
			out = append(out, p)
		}
	}
	return out
}

// Aggregator is the set of selected post ids
type Aggregator struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func New() *Aggregator {
	return &Aggregator{ids: make(map[string]struct{})}
}

// Toggle selects or deselects id and reports whether it is now selected
func (a *Aggregator) Toggle(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.ids[id]; ok {
		delete(a.ids, id)
		return false
	}
	a.ids[id] = struct{}{}
	return true
}

// Select adds ids to the selection
func (a *Aggregator) Select(ids ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, id := range ids {
		a.ids[id] = struct{}{}
	}
}

// SelectAll replaces the selection with the visible ids
func (a *Aggregator) SelectAll(visible []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ids = make(map[string]struct{}, len(visible))
	for _, id := range visible {
		a.ids[id] = struct{}{}
	}
}

func (a *Aggregator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ids = make(map[string]struct{})
}

func (a *Aggregator) IsSelected(id string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.ids[id]
	return ok
}

func (a *Aggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.ids)
}

// IDs returns the selection sorted
func (a *Aggregator) IDs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.ids))
	for id := range a.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Prune drops ids that are not in existing and returns how many went
func (a *Aggregator) Prune(existing []*reddit.Post) int {
	keep := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		keep[p.ID] = struct{}{}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	removed := 0
	for id := range a.ids {
		if _, ok := keep[id]; !ok {
			delete(a.ids, id)
			removed++
		}
	}
	return removed
}

// Selected returns the selected posts in collection order
func (a *Aggregator) Selected(posts []*reddit.Post) []*reddit.Post {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []*reddit.Post
	for _, p := range posts {
		if _, ok := a.ids[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out
}

// AddGalleryItems selects every gallery post that contains one of urls and
// returns how many posts were newly added.
func (a *Aggregator) AddGalleryItems(posts []*reddit.Post, urls []string, resolve ResolveFunc) int {
	added := 0
	for _, p := range posts {
		d := resolve(p)
		if d == nil || d.Kind != media.KindGallery {
			continue
		}
		hit := slices.ContainsFunc(d.Items, func(it media.Item) bool {
			return slices.Contains(urls, it.URL)
		})
		if hit && !a.IsSelected(p.ID) {
			a.Select(p.ID)
			added++
		}
	}
	return added
}

// IDsOf lists the ids of posts
func IDsOf(posts []*reddit.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}
