// Package docs registers the listing service OpenAPI document with swag.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header",
            "description": "Type \"Bearer\" followed by a space and JWT token."
        }
    },
    "definitions": {
        "Listing": {
            "type": "object",
            "required": ["name", "image_ref", "description", "location", "price"],
            "properties": {
                "name": {"type": "string", "maxLength": 100},
                "image_ref": {"type": "string"},
                "description": {"type": "string"},
                "location": {"type": "string"},
                "price": {"type": "integer", "minimum": 1}
            }
        },
        "Product": {
            "type": "object",
            "properties": {
                "index": {"type": "integer"},
                "owner": {"type": "string"},
                "name": {"type": "string"},
                "image_ref": {"type": "string"},
                "description": {"type": "string"},
                "location": {"type": "string"},
                "price": {"type": "integer"},
                "sold_count": {"type": "integer"}
            }
        },
        "Receipt": {
            "type": "object",
            "properties": {
                "index": {"type": "integer"},
                "buyer": {"type": "string"},
                "owner": {"type": "string"},
                "price": {"type": "integer"},
                "change": {"type": "integer"},
                "sold_count": {"type": "integer"}
            }
        },
        "Response": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "data": {"type": "object"},
                "error": {"type": "string"}
            }
        }
    },
    "paths": {
        "/api/products": {
            "get": {
                "tags": ["Products"],
                "summary": "List live products",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "name": "limit", "in": "query"},
                    {"type": "integer", "name": "offset", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Response"}}}
            },
            "post": {
                "tags": ["Products"],
                "summary": "Create a product owned by the caller",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/Listing"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Response"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/Response"}},
                    "401": {"description": "Unauthenticated", "schema": {"$ref": "#/definitions/Response"}}
                }
            }
        },
        "/api/products/count": {
            "get": {
                "tags": ["Products"],
                "summary": "Products ever created and products live",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Response"}}}
            }
        },
        "/api/products/{index}": {
            "get": {
                "tags": ["Products"],
                "summary": "Read a product",
                "produces": ["application/json"],
                "parameters": [{"type": "integer", "name": "index", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Product"}},
                    "404": {"description": "Not found or removed", "schema": {"$ref": "#/definitions/Response"}}
                }
            },
            "put": {
                "tags": ["Products"],
                "summary": "Overwrite a listing (owner only)",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "name": "index", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/Listing"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Response"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/Response"}},
                    "403": {"description": "Caller is not the owner", "schema": {"$ref": "#/definitions/Response"}},
                    "404": {"description": "Not found or removed", "schema": {"$ref": "#/definitions/Response"}}
                }
            },
            "delete": {
                "tags": ["Products"],
                "summary": "Remove a listing (owner only)",
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "parameters": [{"type": "integer", "name": "index", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Response"}},
                    "403": {"description": "Caller is not the owner", "schema": {"$ref": "#/definitions/Response"}},
                    "404": {"description": "Not found or removed", "schema": {"$ref": "#/definitions/Response"}}
                }
            }
        },
        "/api/products/{index}/buy": {
            "post": {
                "tags": ["Purchases"],
                "summary": "Buy a product, tendering an amount",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "name": "index", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"type": "object", "properties": {"tendered": {"type": "integer"}}}}
                ],
                "responses": {
                    "200": {"description": "Settled", "schema": {"$ref": "#/definitions/Receipt"}},
                    "402": {"description": "Tendered amount below price", "schema": {"$ref": "#/definitions/Response"}},
                    "404": {"description": "Not found or removed", "schema": {"$ref": "#/definitions/Response"}},
                    "422": {"description": "Ledger rejected the transfer", "schema": {"$ref": "#/definitions/Response"}},
                    "502": {"description": "Transfer or refund failed", "schema": {"$ref": "#/definitions/Response"}}
                }
            }
        },
        "/api/balances/{principal}": {
            "get": {
                "tags": ["Ledger"],
                "summary": "Token balance of a principal",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "principal", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Response"}}}
            }
        },
        "/health": {
            "get": {
                "tags": ["Health"],
                "summary": "Health check",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Response"}},
                    "503": {"description": "Ledger unavailable", "schema": {"$ref": "#/definitions/Response"}}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Listing Ledger API",
	Description:      "Product registry with purchase settlement against a token ledger",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
