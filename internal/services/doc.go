// Package services defines the [Service] interface for the FlowMaster REST API and implements it with [FlowService].
//
// # Transport
//
// [APIService] performs raw requests. It sends JSON bodies, attaches the bearer token through [oauth2.Token.SetAuthHeader],
// stamps every request with an X-Request-ID header, and optionally throttles requests with a [rate.Limiter].
// Non-2xx responses are returned as data; callers convert them with [APIResponse.Err].
//
// # Authentication
//
// [FlowService.Login] uses the OAuth2 resource-owner password grant against POST /auth/login, so the form encoding and
// token response parsing come from golang.org/x/oauth2. Registration is a plain JSON POST returning the same token shape.
//
// # Error Handling
//
// Every non-2xx response becomes an [*APIError] carrying the status and the server's detail message.
// It unwraps to a shared sentinel:
//   - [shared.ErrUnauthorized] : 401, the token is missing, expired or revoked
//   - [shared.ErrNotFound] : 404
//   - [shared.ErrAPIRequest] : any other status, and transport failures
//
// Use [StatusCode] and [Detail] to inspect an error without a type assertion.
package services
