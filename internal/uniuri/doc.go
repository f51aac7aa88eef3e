// Package uniuri generates random strings for session ids and initial passwords.
package uniuri
