package httpmiddleware

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RouteFinder returns the route template serving r, e.g.
// "/api/orders/{id}". ok is false for unrouted requests.
type RouteFinder func(r *http.Request) (route string, ok bool)

// MakeRouteFinder builds a RouteFinder from the router's route table. It works
// outside the router itself, which the outer middlewares need: mux only sets
// the current route after it has matched.
func MakeRouteFinder(router *mux.Router) RouteFinder {
	return func(r *http.Request) (string, bool) {
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				return tpl, true
			}
		}
		var match mux.RouteMatch
		if !router.Match(r, &match) || match.Route == nil {
			return "", false
		}
		tpl, err := match.Route.GetPathTemplate()
		if err != nil {
			return "", false
		}
		return tpl, true
	}
}

// routeOrPath falls back to a fixed label for unrouted requests so metrics
// keep a bounded cardinality.
func routeOrPath(find RouteFinder, r *http.Request) string {
	if find == nil {
		return "unknown"
	}
	if route, ok := find(r); ok {
		return route
	}
	return "unknown"
}
