// Package auth provides the session middleware of the web application.
//
// The middleware reads the session cookie, stores the user id in
// fiber.Locals under auth.LocalUserID and redirects anonymous requests to
// the login page. Public paths such as static files, the login and logout
// pages, the OIDC endpoints and the health and metrics endpoints pass
// through untouched.
//
// Usage:
//
//	app.Use(authmiddleware.New(sessions))
package auth
