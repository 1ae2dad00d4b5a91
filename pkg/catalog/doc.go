// Package catalog tracks configured providers and the models discovered
// from them, and resolves caller-supplied model identifiers to concrete
// provider endpoints.
package catalog
