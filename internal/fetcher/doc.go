// Package fetcher retrieves pages for the crawler and the discovery
// strategies.
//
// HTTPFetcher is the lightweight path: politeness delay, per-domain rate
// limit, user-agent and proxy rotation, bounded retries with backoff, and
// body decoding (gzip, deflate, brotli, legacy charsets). Renderer is the
// headless path backed by chromedp, used when a page needs script execution
// to expose its links.
package fetcher
