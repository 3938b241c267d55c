package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redditscraper/pkg/media"
	"redditscraper/pkg/reddit"
)

func fixture() ([]*reddit.Post, ResolveFunc) {
	posts := []*reddit.Post{
		{ID: "img"}, {ID: "vid"}, {ID: "gal"}, {ID: "text"},
	}
	kinds := map[string]*media.Descriptor{
		"img": {Kind: media.KindImage, Items: []media.Item{{URL: "https://i.redd.it/1.jpg", Kind: media.KindImage}}},
		"vid": {Kind: media.KindVideo, Items: []media.Item{{URL: "https://v.redd.it/2.mp4", Kind: media.KindVideo}}},
		"gal": {Kind: media.KindGallery, Items: []media.Item{
			{URL: "https://i.redd.it/g1.jpg", Kind: media.KindImage},
			{URL: "https://i.redd.it/g2.jpg", Kind: media.KindImage},
		}},
	}
	return posts, func(p *reddit.Post) *media.Descriptor { return kinds[p.ID] }
}

func TestDisplayed(t *testing.T) {
	posts, resolve := fixture()

	assert.Equal(t, []string{"img", "vid", "gal", "text"}, IDsOf(Displayed(posts, FilterAll, resolve)))
	assert.Equal(t, []string{"img", "gal"}, IDsOf(Displayed(posts, FilterImage, resolve)))
	assert.Equal(t, []string{"vid"}, IDsOf(Displayed(posts, FilterVideo, resolve)))
}

func TestSelectAllThenClear(t *testing.T) {
	a := New()
	a.Select("stale")
	a.SelectAll([]string{"a", "b"})
	assert.Equal(t, []string{"a", "b"}, a.IDs())

	a.Clear()
	assert.Zero(t, a.Len())
}

func TestFilterChangeKeepsSelection(t *testing.T) {
	posts, resolve := fixture()
	a := New()

	a.SelectAll(IDsOf(Displayed(posts, FilterAll, resolve)))
	visible := Displayed(posts, FilterImage, resolve)

	assert.Len(t, visible, 2)
	assert.Equal(t, 4, a.Len())
	assert.True(t, a.IsSelected("vid"))
}

func TestToggle(t *testing.T) {
	a := New()
	assert.True(t, a.Toggle("x"))
	assert.True(t, a.IsSelected("x"))
	assert.False(t, a.Toggle("x"))
	assert.False(t, a.IsSelected("x"))
}

func TestPruneAndSelected(t *testing.T) {
	posts, _ := fixture()
	a := New()
	a.Select("gal", "img", "gone")

	assert.Equal(t, 1, a.Prune(posts))
	assert.Equal(t, []string{"gal", "img"}, a.IDs())
	// collection order, not selection order
	assert.Equal(t, []string{"img", "gal"}, IDsOf(a.Selected(posts)))
}

func TestAddGalleryItems(t *testing.T) {
	posts, resolve := fixture()
	a := New()

	added := a.AddGalleryItems(posts, []string{"https://i.redd.it/g2.jpg", "https://i.redd.it/1.jpg"}, resolve)
	assert.Equal(t, 1, added, "only gallery posts are matched")
	assert.Equal(t, []string{"gal"}, a.IDs())

	assert.Zero(t, a.AddGalleryItems(posts, []string{"https://i.redd.it/g1.jpg"}, resolve))
}

func TestParseFilter(t *testing.T) {
	for in, want := range map[string]Filter{"": FilterAll, "ALL": FilterAll, "image": FilterImage, " video ": FilterVideo} {
		got, err := ParseFilter(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFilter("gif")
	assert.Error(t, err)
}

func TestMatchesNilDescriptor(t *testing.T) {
	assert.True(t, FilterAll.Matches(nil))
	assert.False(t, FilterImage.Matches(nil))
	assert.False(t, FilterVideo.Matches(nil))
}
