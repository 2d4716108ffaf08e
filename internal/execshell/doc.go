// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with lifecycle logging via ShellExecutor, exposes
// OSCommandRunner for default process execution, and defines the abstractions
// envrig uses to run git, uv, and virtualenv interpreters in a testable
// manner. Failures carry the full command line and the captured output so a
// run can be diagnosed without re-running at higher verbosity.
package execshell
