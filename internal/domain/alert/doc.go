// Package alert holds the feed record and the verdict the filter engine
// reaches about it.
package alert
