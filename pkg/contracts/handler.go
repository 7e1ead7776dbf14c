// Package contracts holds the interfaces shared between the binaries and pkg/app.
package contracts

import "github.com/julienschmidt/httprouter"

// Handler mounts one domain's routes on the application router.
type Handler interface {
	RegisterRoutes(router *httprouter.Router)
}
