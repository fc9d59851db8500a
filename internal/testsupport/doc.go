// Package testsupport provides shared fixtures for tests: tiny image
// writers, fake video probers, and pre-wired configs backed by temp dirs.
package testsupport
