// Package oidc serves the OpenID Connect login, callback and logout routes.
//
// The routes are only registered when OIDC is enabled and provider
// discovery succeeds. State tokens live in memory for five minutes and are
// single use. Groups from the configured claim are synchronized on every
// login.
package oidc
