package xhttp

import (
	"github.com/fasthttp/router"
)

type Router = router.Router

// NewRouter returns a new Router
func NewRouter() *Router {
	return router.New()
}

// CreateDefaultRouter returns a router configured the way the API serves:
// fixed-path and trailing-slash redirects on, JSON fallbacks for unknown
// routes and methods.
func CreateDefaultRouter() *Router {
	r := NewRouter()
	r.RedirectFixedPath = true
	r.RedirectTrailingSlash = true
	r.SaveMatchedRoutePath = true
	r.NotFound = NotFoundHandler
	r.MethodNotAllowed = MethodNotAllowedHandler
	r.HandleOPTIONS = false
	r.HandleMethodNotAllowed = true
	return r
}

func NotFoundHandler(ctx *RequestCtx) {
	ctx.SetStatusCode(StatusNotFound)
	ctx.SetContentType("application/json")
	ctx.SetBodyString(`{"error":"not found"}`)
}

func MethodNotAllowedHandler(ctx *RequestCtx) {
	ctx.SetStatusCode(StatusMethodNotAllowed)
	ctx.SetContentType("application/json")
	ctx.SetBodyString(`{"error":"method not allowed"}`)
}
