// Package rulesource provides audit.RuleSource implementations.
//
// Static serves a fixed in-memory rule list and suits tests and embedded
// setups. File reads rules from a YAML document and can watch it for
// changes, so edits take effect on the next refresh, or immediately when
// the watcher is wired to the refresher's Kick.
package rulesource
