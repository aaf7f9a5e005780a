// Package router is a thin layer over http.ServeMux that adds method
// helpers and middleware groups. Routes keep ServeMux pattern syntax, so
// handlers read path parameters with r.PathValue.
package router

import (
	"net/http"
	"slices"
)

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Router registers routes on a shared mux. Groups share the mux and extend
// the middleware chain.
type Router struct {
	mux   *http.ServeMux
	chain []Middleware
}

// New returns a Router whose routes all run through middleware, first
// argument outermost.
func New(middleware ...Middleware) *Router {
	return &Router{mux: http.NewServeMux(), chain: middleware}
}

// Group returns a Router that appends middleware to r's chain.
func (r *Router) Group(middleware ...Middleware) *Router {
	return &Router{mux: r.mux, chain: concat(r.chain, middleware)}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Handle registers h for method and pattern. Route middleware runs inside
// the router's chain.
func (r *Router) Handle(method, pattern string, h http.Handler, middleware ...Middleware) {
	chain := concat(r.chain, middleware)
	for _, m := range slices.Backward(chain) {
		h = m(h)
	}
	r.mux.Handle(method+" "+pattern, h)
}

func (r *Router) Get(pattern string, h http.HandlerFunc, mw ...Middleware) {
	r.Handle(http.MethodGet, pattern, h, mw...)
}

func (r *Router) Post(pattern string, h http.HandlerFunc, mw ...Middleware) {
	r.Handle(http.MethodPost, pattern, h, mw...)
}

func (r *Router) Put(pattern string, h http.HandlerFunc, mw ...Middleware) {
	r.Handle(http.MethodPut, pattern, h, mw...)
}

func (r *Router) Patch(pattern string, h http.HandlerFunc, mw ...Middleware) {
	r.Handle(http.MethodPatch, pattern, h, mw...)
}

func (r *Router) Delete(pattern string, h http.HandlerFunc, mw ...Middleware) {
	r.Handle(http.MethodDelete, pattern, h, mw...)
}

func concat(a, b []Middleware) []Middleware {
	return append(slices.Clip(a), b...)
}
