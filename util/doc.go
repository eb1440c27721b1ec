// Package util holds small helpers shared by the config, server and api
// packages: byte size parsing and formatting, secret masking for logs and
// input sanitizing.
package util
