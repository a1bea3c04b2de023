package main

// @title Listing Registry API
// @version 1.0
// @description Product listing registry with purchase settlement against a token ledger
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://github.com/tair/listing-ledger
// @contact.email support@example.com

// @license.name MIT
// @license.url https://github.com/tair/listing-ledger/blob/main/LICENSE

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @tag.name Products
// @tag.description Listing lifecycle and purchase endpoints

// @tag.name Balances
// @tag.description Ledger balance lookups

// @tag.name Health
// @tag.description Health check endpoints
