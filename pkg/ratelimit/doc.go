// Package ratelimit paces requests to the Reddit API.
//
// Throttle wraps a golang.org/x/time/rate token bucket so that it can be
// reset between fetches. NewInterval gives fixed spacing between listing
// pages; NewPerMinute caps overall API traffic.
//
//	pages := ratelimit.NewInterval(300 * time.Millisecond)
//	if err := pages.Wait(ctx); err != nil {
//	    return err
//	}
package ratelimit
