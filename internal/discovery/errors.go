package discovery

import "errors"

var (
	// ErrUnexpectedResponse is returned when a discovery source answers with
	// a body we cannot interpret.
	ErrUnexpectedResponse = errors.New("unexpected response")

	// ErrNoNameServers is returned when the zone has no NS records.
	ErrNoNameServers = errors.New("no name servers found")

	// ErrUnknownEngine is returned for a search engine without a descriptor.
	ErrUnknownEngine = errors.New("unknown search engine")
)
