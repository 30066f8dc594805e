// Package logger wraps zap for the monitor:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and the WithLevel option for sub-loggers
//     that must stay quieter than the rest of the process.
//
// Every pipeline stage takes a context and logs through it, so cycle ids and
// component names follow a message without being passed around by hand.
package logger
