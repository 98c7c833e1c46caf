package config

// Discovery strategy names.
const (
	StrategyCTLog        = "ct_log"
	StrategySeed         = "seed"
	StrategyBruteForce   = "bruteforce"
	StrategyZoneTransfer = "zone_transfer"
	StrategySearch       = "search"
)

// AllStrategies lists every known strategy in the order they are scheduled.
var AllStrategies = []string{
	StrategyCTLog,
	StrategySeed,
	StrategyZoneTransfer,
	StrategySearch,
	StrategyBruteForce,
}

// KnownSearchEngines lists the engines with a result-page descriptor.
var KnownSearchEngines = []string{
	"google", "bing", "duckduckgo", "yandex", "yahoo", "baidu", "ecosia",
}

// DefaultSearchEngines are the engines queried when none are configured.
var DefaultSearchEngines = []string{
	"google", "bing", "duckduckgo", "yandex", "yahoo",
}

// DefaultSeeds are well-known domains under .rw used to bootstrap the crawl.
var DefaultSeeds = []string{
	"gov.rw",
	"minict.gov.rw",
	"risa.rw",
	"ktpress.rw",
	"newtimes.co.rw",
	"rba.co.rw",
	"moh.gov.rw",
	"rra.gov.rw",
	"ur.ac.rw",
	"rdb.rw",
	"bnr.rw",
	"mineduc.gov.rw",
	"irembo.gov.rw",
}

// DefaultUserAgents is the browser user-agent pool rotated by the fetcher.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/96.0.4664.110 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.1 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:95.0) Gecko/20100101 Firefox/95.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/96.0.4664.93 Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 15_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) CriOS/96.0.4664.53 Mobile/15E148 Safari/604.1",
}
