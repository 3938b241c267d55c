package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"redditscraper/pkg/comments"
	"redditscraper/pkg/selection"
	"redditscraper/pkg/ui"
)

var (
	postsFilter     string
	selectAll       bool
	selectClear     bool
	selectToggle    bool
	selectGallery   []string
	commentsOfSel   bool
	commentsOfShown bool
)

var postsCmd = &cobra.Command{
	Use:   "posts",
	Short: "List the posts of the current session",
	Long: `List the displayed posts of the current session. The media filter is
stored in the session and also decides what 'select --all' and
'comments --displayed' act on.`,
	Example: `  redditscraper posts
  redditscraper posts --filter video`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil, false)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("filter") {
			f, err := selection.ParseFilter(postsFilter)
			if err != nil {
				return err
			}
			a.scraper.SetFilter(f)
			if err := a.save(); err != nil {
				return err
			}
		}

		all, shown := a.scraper.Posts(), a.scraper.Displayed()
		if len(all) == 0 {
			ui.PrintWarning("No posts yet. Run 'redditscraper fetch <subreddit>' first.")
			return nil
		}
		ui.PrintInfo("Source", a.scraper.Params().Describe())
		ui.PrintInfo("Showing", fmt.Sprintf("%s of %s posts (%s) · %d selected",
			ui.FormatCount(len(shown)), ui.FormatCount(len(all)),
			ui.FilterLabel(a.scraper.Filter()), len(a.scraper.Selected())))
		fmt.Fprintln(ui.Output)
		ui.PrintPosts(ui.Output, shown, a.listOptions())
		return nil
	},
}

var selectCmd = &cobra.Command{
	Use:   "select [ids...]",
	Short: "Select posts for export and archiving",
	Long: `Select posts by id. The selection survives filter changes and 'more',
and is cleared by a new fetch or search.`,
	Example: `  # Select two posts
  redditscraper select 1abcde 1fghij

  # Flip the selection of a post
  redditscraper select --toggle 1abcde

  # Select every displayed post, or clear everything
  redditscraper select --all
  redditscraper select --clear

  # Select the posts that contain a gallery item
  redditscraper select --gallery-url https://i.redd.it/abc.jpg`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil, false)
		if err != nil {
			return err
		}

		switch {
		case selectClear:
			a.scraper.ClearSelection()
		case selectAll:
			a.scraper.SelectAll()
		case len(selectGallery) > 0:
			if n := a.scraper.SelectGalleryItems(selectGallery); n == 0 {
				ui.PrintWarning("No gallery in the session contains those URLs")
			}
		case selectToggle:
			if err := toggleEach(a.scraper, args, ui.PrintInfo); err != nil {
				return err
			}
		case len(args) > 0:
			if err := a.scraper.Select(args...); err != nil {
				return err
			}
		default:
			return cmd.Help()
		}

		if err := a.save(); err != nil {
			return err
		}
		ui.PrintSuccess(fmt.Sprintf("%d posts selected", len(a.scraper.Selected())))
		return nil
	},
}

type toggler interface {
	Toggle(id string) (bool, error)
}

// toggleEach flips each id in turn and stops at the first unknown one
func toggleEach(t toggler, ids []string, report func(id, state string)) error {
	for _, id := range ids {
		on, err := t.Toggle(id)
		if err != nil {
			return err
		}
		state := "deselected"
		if on {
			state = "selected"
		}
		report(id, state)
	}
	return nil
}

var commentsCmd = &cobra.Command{
	Use:   "comments [id]",
	Short: "Show or load comments",
	Long: `With a post id, toggle its comment thread: the first call loads and shows
the comments, the next one hides them. With --selected or --displayed,
load the comments of every selected or displayed post that has none yet.`,
	Example: `  redditscraper comments 1abcde
  redditscraper comments --selected
  redditscraper comments --displayed`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil, true)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		var sum comments.BatchSummary
		switch {
		case len(args) == 1:
			th, err := a.scraper.ToggleComments(ctx, args[0])
			if err != nil {
				return err
			}
			if err := a.save(); err != nil {
				return err
			}
			if !th.Visible {
				ui.PrintInfo(args[0], "comments hidden")
				return nil
			}
			post, _ := a.scraper.Post(args[0])
			fmt.Fprintf(ui.Output, "%s\n", ui.Orange(post.Title))
			ui.PrintComments(ui.Output, th, time.Now())
			return nil
		case commentsOfSel:
			sum, err = a.scraper.FetchSelectedComments(ctx)
		case commentsOfShown:
			sum, err = a.scraper.FetchDisplayedComments(ctx)
		default:
			return cmd.Help()
		}
		if err != nil {
			return err
		}
		if err := a.save(); err != nil {
			return err
		}

		if sum.Requested == 0 {
			ui.PrintInfo("Comments", "already loaded for every post")
			return nil
		}
		msg := fmt.Sprintf("Loaded comments for %d of %d posts", sum.Loaded, sum.Requested)
		if sum.Failed > 0 {
			ui.PrintWarning(fmt.Sprintf("%s, %d failed", msg, sum.Failed))
			return nil
		}
		ui.PrintSuccess(msg)
		return nil
	},
}

func init() {
	postsCmd.Flags().StringVar(&postsFilter, "filter", "", "media filter (all, image, video)")

	selectCmd.Flags().BoolVar(&selectAll, "all", false, "select every displayed post")
	selectCmd.Flags().BoolVar(&selectClear, "clear", false, "clear the selection")
	selectCmd.Flags().BoolVar(&selectToggle, "toggle", false, "flip the selection of the given ids")
	selectCmd.Flags().StringSliceVar(&selectGallery, "gallery-url", nil, "select posts whose gallery contains these media URLs")
	selectCmd.MarkFlagsMutuallyExclusive("all", "clear", "toggle", "gallery-url")

	commentsCmd.Flags().BoolVar(&commentsOfSel, "selected", false, "load comments of the selected posts")
	commentsCmd.Flags().BoolVar(&commentsOfShown, "displayed", false, "load comments of the displayed posts")
	commentsCmd.MarkFlagsMutuallyExclusive("selected", "displayed")

	rootCmd.AddCommand(postsCmd, selectCmd, commentsCmd)
}

func (a *app) listOptions() ui.ListOptions {
	return ui.ListOptions{
		Selected: a.scraper.IsSelected,
		Resolve:  a.scraper.Resolve,
		Thread:   a.scraper.Thread,
		Now:      time.Now(),
	}
}
