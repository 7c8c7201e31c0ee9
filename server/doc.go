// Package server exposes a Resolver over HTTP.
//
// Routes:
//
//	GET  /lookup   resolve the "string" parameter
//	POST /lookup   same parameters from the URL, a form body or a JSON body
//	GET  /health   index statistics; 503 when the index is unreachable
//	GET  /docs     endpoint documentation
//	GET  /         redirect to /docs
//
// Every response carries permissive CORS headers and an X-Request-ID.
package server
