// Package feed fetches the raw alert document from the upstream source.
//
// The source only answers requests that look like they come from its own web
// page, so every request carries the Referer, User-Agent and AJAX headers the
// page sends. The body is UTF-8, sometimes prefixed with a byte order mark.
package feed
