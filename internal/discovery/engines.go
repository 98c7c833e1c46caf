package discovery

import (
	"net/url"
	"strconv"
)

// Pagination is how an engine addresses result pages.
type Pagination int

const (
	// PageOffset sends the zero-based result offset: 0, 10, 20.
	PageOffset Pagination = iota
	// PageOffsetOneBased sends the one-based result offset: 1, 11, 21.
	PageOffsetOneBased
	// PageIndex sends the zero-based page number: 0, 1, 2.
	PageIndex
)

// Engine describes how to query one search engine and read its results.
type Engine struct {
	Name           string
	BaseURL        string
	QueryParam     string
	PageParam      string
	ResultsPerPage int
	MaxPages       int
	Pagination     Pagination
	// Selectors are CSS selectors of result anchors, tried in order.
	Selectors []string
}

// PageURL returns the result page URL for query and the zero-based page.
func (e Engine) PageURL(query string, page int) string {
	v := url.Values{}
	v.Set(e.QueryParam, query)
	if page > 0 || e.Pagination == PageOffsetOneBased {
		v.Set(e.PageParam, strconv.Itoa(e.pageValue(page)))
	}
	return e.BaseURL + "?" + v.Encode()
}

func (e Engine) pageValue(page int) int {
	switch e.Pagination {
	case PageIndex:
		return page
	case PageOffsetOneBased:
		return page*e.ResultsPerPage + 1
	default:
		return page * e.ResultsPerPage
	}
}

// Engines is the descriptor table of every supported engine.
var Engines = map[string]Engine{
	"google": {
		Name:           "google",
		BaseURL:        "https://www.google.com/search",
		QueryParam:     "q",
		PageParam:      "start",
		ResultsPerPage: 10,
		MaxPages:       10,
		Pagination:     PageOffset,
		Selectors: []string{
			"div.g div.yuRUbf a",
			"div.g h3.LC20lb a",
			"div.g a.l",
			"div.g a.C8nzq",
			"div.yuRUbf a",
		},
	},
	"bing": {
		Name:           "bing",
		BaseURL:        "https://www.bing.com/search",
		QueryParam:     "q",
		PageParam:      "first",
		ResultsPerPage: 10,
		MaxPages:       10,
		Pagination:     PageOffsetOneBased,
		Selectors: []string{
			"li.b_algo h2 a",
			"li.b_algo a.tilk",
		},
	},
	"duckduckgo": {
		Name:           "duckduckgo",
		BaseURL:        "https://html.duckduckgo.com/html",
		QueryParam:     "q",
		PageParam:      "s",
		ResultsPerPage: 30,
		MaxPages:       5,
		Pagination:     PageOffset,
		Selectors: []string{
			"a.result__a",
			"a.result__url",
			"a.result-link",
		},
	},
	"yandex": {
		Name:           "yandex",
		BaseURL:        "https://yandex.com/search/",
		QueryParam:     "text",
		PageParam:      "p",
		ResultsPerPage: 10,
		MaxPages:       10,
		Pagination:     PageIndex,
		Selectors: []string{
			"div.organic__url-text a",
			"h2 a.link",
			"div.organic a",
		},
	},
	"yahoo": {
		Name:           "yahoo",
		BaseURL:        "https://search.yahoo.com/search",
		QueryParam:     "p",
		PageParam:      "b",
		ResultsPerPage: 10,
		MaxPages:       10,
		Pagination:     PageOffsetOneBased,
		Selectors: []string{
			"div.algo-sr a.ac-algo",
			"h3.title a",
			"div.algo-sr a",
		},
	},
	"baidu": {
		Name:           "baidu",
		BaseURL:        "https://www.baidu.com/s",
		QueryParam:     "wd",
		PageParam:      "pn",
		ResultsPerPage: 10,
		MaxPages:       10,
		Pagination:     PageOffset,
		Selectors: []string{
			"h3.t a",
			"div.result a",
		},
	},
	"ecosia": {
		Name:           "ecosia",
		BaseURL:        "https://www.ecosia.org/search",
		QueryParam:     "q",
		PageParam:      "p",
		ResultsPerPage: 10,
		MaxPages:       10,
		Pagination:     PageIndex,
		Selectors: []string{
			"div.result a.result-title",
			"a.js-result-url",
		},
	},
}

// secondLevelZones are the registry zones queried in addition to the
// bare suffix.
var secondLevelZones = []string{"co", "ac", "gov", "net", "org"}

// SearchQueries returns the site: queries for suffix, e.g. "site:.rw" and
// "site:.co.rw".
func SearchQueries(suffix string) []string {
	queries := []string{"site:" + suffix}
	for _, zone := range secondLevelZones {
		queries = append(queries, "site:."+zone+suffix)
	}
	return queries
}
