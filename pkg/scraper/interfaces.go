package scraper

import (
	"redditscraper/internal/downloader"
	"redditscraper/pkg/comments"
	"redditscraper/pkg/fetcher"
)

// API is everything the scraper needs from Reddit. *reddit.Client
// satisfies it.
type API interface {
	fetcher.API
	comments.API
	downloader.MediaDownloader
}

// observers fans archive events out to several observers
type observers []downloader.Observer

func (o observers) Begin(total int) {
	for _, obs := range o {
		obs.Begin(total)
	}
}

func (o observers) Settled(r downloader.Result) {
	for _, obs := range o {
		obs.Settled(r)
	}
}

func (o observers) Done(r downloader.Report) {
	for _, obs := range o {
		obs.Done(r)
	}
}
