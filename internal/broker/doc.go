// Package broker keeps the MQTT session of the monitor alive.
//
// Manager owns the connection status. It connects in the background, reacts
// to the client's connect and connection-lost callbacks, reconnects at once
// after a drop and backs off only when consecutive attempts keep failing.
// Startup code blocks on WaitConnected so the pipeline never runs without a
// publish path. Connection failures are logged and never returned to callers.
package broker
