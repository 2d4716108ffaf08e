// Package iniconfig loads layered INI workspace configurations.
//
// An entry file may declare further files in a reserved [include] section;
// includes merge depth-first before the declaring file so the declaring
// file's values win per (section, option). Include tokens resolve relative to
// the declaring file, may be marked optional with a leading '?', and may
// reference runtime variables that are substituted before filesystem
// resolution. Values support extended interpolation (${section:option} and
// ${name}) resolved lazily at access time, so one merged document can be
// read against different runtime variable sets.
package iniconfig
