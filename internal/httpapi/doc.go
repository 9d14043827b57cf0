// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

// Package httpapi exposes the JSON API:
//
//	POST   /api/v1/auth_token          log in, set the refresh cookie
//	POST   /api/v1/auth_token/refresh  rotate the refresh session
//	DELETE /api/v1/auth_token          log out
//	GET    /api/v1/projects            projects visible to the caller
//	GET    /api/v1/tasks               tasks visible to the caller
//	GET    /healthz                    liveness
//
// Login, refresh and logout are driven by the refresh_token cookie. The
// listing endpoints take a bearer access token.
package httpapi
