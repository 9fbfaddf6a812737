package main

// @title Cart Service API
// @version 1.0
// @description Per-user cart lines and favorites backing the storefront's authenticated mode

// @host localhost:8082
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
