// Package crawler implements the active crawl: the URL frontier, the HTML
// extractor and the bounded worker pool that drains the frontier.
//
// # Architecture
//
// The Crawler pulls batches from the Frontier and runs each item through
// the robots gate, the fetcher and the Parser. Target-domain links re-enter
// the Frontier at depth+1 and every target domain seen is handed to a
// Recorder (the catalog).
//
// Design decision: We implement our own crawler rather than using a
// third-party framework because:
//  1. Discovery strategies push into the same frontier while the crawl runs
//  2. We need tight control over politeness, retries and proxy rotation
//  3. Recording domains, not pages, is the goal; a page store is not needed
//
// # Components
//
//   - Crawler: the worker pool coordinating the crawl
//   - Frontier: FIFO with visited-set deduplication and depth bound
//   - Parser: HTML parser that extracts links and page metadata
//
// # Headless escalation
//
// When an HTML page yields no links and a Renderer is configured, the page
// is loaded again in a headless browser and extraction is repeated on the
// rendered DOM.
//
// # Usage
//
//	frontier := crawler.NewFrontier(model.NewTarget(".rw"), 3)
//	frontier.Push(model.FrontierItem{URL: "https://gov.rw", Source: model.MethodSeed})
//	c := crawler.New(frontier, httpFetcher, catalog, target, crawler.WithConcurrency(5))
//	err := c.Run(ctx, nil)
package crawler
