// Package integration runs the whole monitor against in-process fakes of the
// feed, the broker and a notification API.
package integration
