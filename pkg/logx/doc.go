// Package logx configures lootbot's structured logging.
//
// It is a small wrapper (logx.Logger) on top of zerolog that keeps:
//   - Console output readable (short timestamps)
//   - File output JSON-structured
//   - An optional Telegram sink (min-level + rate limiting) so operators
//     can watch errors without shell access to the host
package logx
