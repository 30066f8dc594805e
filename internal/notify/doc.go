// Package notify fans a message out to external channels.
//
// Sinks are configured from URI strings once at startup:
//
//	tgram://<bot token>/<chat id>[/<chat id>...]
//	discord://<webhook id>/<webhook token>
//	slack://<token a>/<token b>/<token c>
//	json://<host>[:port]/<path>, jsons://... (HTTPS)
//	pover://<user key>@<app token>
//	mailto://<user>:<pass>@<host>[:port]?from=<addr>&to=<addr>[,<addr>...]
//	mailtos://... (implicit TLS)
//	ses://<aws region>?from=<addr>&to=<addr>[,<addr>...]
//	resend://<api key>?from=<addr>&to=<addr>[,<addr>...]
package notify
