// Package route is the declaration surface scanned by routegen.
//
// Applications declare routes as exported package-level variables built from
// the factory functions below. The serve-time runtime that executes these
// routes lives outside this module; routegen only reads the declarations and
// the static types of their handlers.
//
//	var GetPost = route.Get("/posts/{id}", func(ctx context.Context, id string) (Post, error) {
//	    ...
//	})
package route

// Protocol tags carried by a Route.
const (
	ProtocolHTTP   = "http"
	ProtocolWS     = "ws"
	ProtocolStream = "stream"
)

// Route is an opaque handle produced by the factory functions. The generator
// identifies route declarations by the factory call, not by this struct, so
// runtimes are free to wrap it.
type Route struct {
	Method   string
	Path     string
	Protocol string
	Handler  any
}

// Get declares an HTTP GET route.
func Get(path string, handler any) Route {
	return Route{Method: "GET", Path: path, Protocol: ProtocolHTTP, Handler: handler}
}

// Post declares an HTTP POST route.
func Post(path string, handler any) Route {
	return Route{Method: "POST", Path: path, Protocol: ProtocolHTTP, Handler: handler}
}

// Put declares an HTTP PUT route.
func Put(path string, handler any) Route {
	return Route{Method: "PUT", Path: path, Protocol: ProtocolHTTP, Handler: handler}
}

// Delete declares an HTTP DELETE route.
func Delete(path string, handler any) Route {
	return Route{Method: "DELETE", Path: path, Protocol: ProtocolHTTP, Handler: handler}
}

// Patch declares an HTTP PATCH route.
func Patch(path string, handler any) Route {
	return Route{Method: "PATCH", Path: path, Protocol: ProtocolHTTP, Handler: handler}
}

// Handle declares a route with an explicit method.
func Handle(method, path string, handler any) Route {
	return Route{Method: method, Path: path, Protocol: ProtocolHTTP, Handler: handler}
}

// WS declares a WebSocket route. The handler's body parameter describes the
// inbound message type and its result the outbound message type.
func WS(path string, handler any) Route {
	return Route{Path: path, Protocol: ProtocolWS, Handler: handler}
}

// Stream declares a server-streaming route. The handler returns a receive
// channel whose element type becomes the result type.
func Stream(path string, handler any) Route {
	return Route{Method: "GET", Path: path, Protocol: ProtocolStream, Handler: handler}
}
