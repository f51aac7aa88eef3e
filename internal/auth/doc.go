// Package auth implements identity and authorization for ExtMailer.
//
// Users sign in against the local database, LDAP or an OIDC provider.
// External accounts are provisioned on first login and their directory
// groups are synchronized on every login.
//
// Authorization is role based. A user holds one role directly and may
// receive more through group mappings. A role holds permissions such as
// overall.manage. A permission may name another permission that implies
// it, so holders of overall.administer pass every overall.manage check.
//
// Whether a permission exists at all depends on the installation: the
// catalog is seeded into the permissions table and Service.Defined reports
// on it. Callers that guard a feature with an optional permission look it
// up first and fall back when it yields ErrPermissionUndefined.
//
//	svc := auth.NewService(db)
//	ok, err := svc.HasPermission(userID, auth.PermOverallManage)
//
//	app.Get("/api/configure/:id/revisions",
//	    auth.RequirePermission(svc, auth.PermOverallAdminister),
//	    handler,
//	)
package auth
