// Package main provides the entry point for the tldcrawl CLI.
//
// tldcrawl discovers and catalogs websites registered under one national
// top-level domain (.rw by default). It combines certificate transparency
// logs, seed crawling, DNS zone transfers, search engine queries and
// subdomain brute forcing, and writes the catalog as a JSON document.
//
// Usage:
//
//	tldcrawl crawl
//	tldcrawl report --format markdown
//	tldcrawl history
//
// See --help for all available options.
package main

// main is the entry point for tldcrawl.
func main() {
	Execute()
}
