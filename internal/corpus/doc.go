// Package corpus locates the suite manifest (diagcheck.toml) and discovers
// the fixture files it points at. The manifest is optional: without one the
// checker runs over the current directory with defaults.
package corpus
