// Package workspace defines the typed project model extracted from a resolved
// configuration document, the on-disk layout derived from a workspace root,
// and the rendering of the final server configuration file.
package workspace
