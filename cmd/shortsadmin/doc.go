// Package main hosts the shortsadmin CLI entrypoint and command graph.
//
// The Cobra command tree maps terminal invocations onto the admin service:
// list views print one window as a table, mutations print the refreshed
// record, and --watch turns a view into a polling loop that redraws until
// interrupted. Configuration, the persisted session and the action journal
// are resolved once in commandContext so subcommands only deal with output.
//
// Add behaviour to internal/admin first and surface it here.
package main
