// Package cache provides a generic TTL+LRU in-memory cache. The
// documentation fetcher uses it to cache per-(source, model) markdown
// snippets, keyed as a plain string and valued as *string so a confirmed
// "no documentation" result can be cached distinctly from "not yet tried".
package cache

// Cache defines the interface for the markdown cache. A nil value is a
// valid cached result (the source had nothing for this model); a cache
// miss is reported via the bool return, not via a nil value.
type Cache interface {
	Get(key string) (*string, bool)
	Set(key string, value *string)
	Delete(key string)
	Len() int
	Clear()
}
