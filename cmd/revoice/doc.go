// Command revoice is the command-line front end for the revoice daemon.
//
// It submits YouTube re-voicing jobs, polls them until they finish, looks up
// completed translations and renders job listings and daemon health. The
// serve subcommand runs the daemon in the foreground.
package main
