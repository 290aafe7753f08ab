// Package logger wraps zap to offer:
//   - a global sugared logger writing human-readable lines to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing utilities,
//   - leveled helpers taking key-value pairs (InfoKV, ErrorKV, etc.).
//
// Commands attach a named logger to their context and every layer below
// (services, the upgrade engine, plugins) logs through that context, so run
// ids and release names follow the pipeline without being passed explicitly.
package logger
