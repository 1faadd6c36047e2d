// Package fileutil resolves local content paths and detects busy files.
//
// Content of a cloud-disk entry is cached under a per-user, per-bundle tree
// split into 256 hash buckets. Downloads land under TempName first and are
// renamed into place once complete.
//
// OpenChecker is a polling pre-check: a file reported idle may be opened
// for write right after the check returns.
package fileutil
