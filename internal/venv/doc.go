// Package venv provisions the workspace virtualenv through the external uv
// tool: interpreter install, environment creation, wheelhouse builds, and
// offline installs from a compiled lock file.
package venv
