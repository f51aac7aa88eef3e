// Package main is the entry point of ExtMailer, the administrative web
// service that owns the global extended e-mail notification configuration.
//
// Run "extmailer start" to serve the configuration page, "extmailer config
// dump" to print the effective configuration, and the "user" and "role"
// commands to manage accounts and permission grants from the shell.
package main
