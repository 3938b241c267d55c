// Package reddit is a small client for the application-only Reddit API:
// the client_credentials token exchange, subreddit listings, the three
// search scopes and per-post top-level comments. Payloads are decoded into
// the typed models in models.go; each listing child is decoded on its own
// so one malformed post does not fail a page.
package reddit
