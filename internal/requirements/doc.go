// Package requirements merges Python requirement files from multiple
// repositories into a single deterministic compile input, filtering ignored
// distributions, and delegates lock compilation to the external uv tool.
package requirements
