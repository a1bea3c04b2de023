package http

import (
	"net/http"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	// registers the OpenAPI document served under /swagger/doc.json
	_ "github.com/tair/listing-ledger/internal/listing/docs"
)

// RegisterSwaggerDocs registers Swagger documentation routes. A nil handler
// serves the registered listing document.
func RegisterSwaggerDocs(router *mux.Router, swaggerHandler http.Handler) {
	if swaggerHandler == nil {
		swaggerHandler = httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json"))
	}
	router.PathPrefix("/swagger/").Handler(swaggerHandler)
}
