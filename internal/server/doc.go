// Package server provides HTTP routing, middleware, and the loopback callback listener used for third-party
// authorization.
//
// # Routing
//
// [CallbackMux] serves the listener's GET paths behind a [Middleware] chain (first added is outermost).
//
// # Callback Handler
//
// [CodeHandler] receives the authorization redirect. It validates the state parameter, hands the one-shot code to
// whoever is waiting on [CodeHandler.Result], and serves a page telling the user to return to the terminal.
// Requests with the wrong state are rejected without ending the flow.
//
// # Authorizer
//
// [CodeforcesAuthorizer] ties the pieces together: it builds the authorize URL, opens it in a browser, runs a
// temporary HTTP server for the redirect, and shuts it down once a code arrives or the context ends.
// There is no token exchange. The code is forwarded to the IMusic backend, which performs its own.
//
// # Handler Interface
//
// Handlers mounted on a [CallbackMux] implement [Handler], which adds the paths they serve.
package server
