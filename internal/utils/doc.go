// Package utils hosts cross-cutting helpers for the envrig CLI: the viper
// backed application configuration loader and the zap logger factory.
package utils
