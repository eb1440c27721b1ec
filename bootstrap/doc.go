// Package bootstrap drives the process lifecycle shared by the service and
// the CLI.
//
// NewApp validates the config and initializes logging. Components registered
// on the App start in order, then OnConfigure callbacks wire the business
// layer (orchestrator, routes). Run blocks until SIGINT/SIGTERM and then
// stops everything in reverse; RunTask runs one finite task instead.
package bootstrap
