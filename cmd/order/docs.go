package main

// @title Order Service API
// @version 1.0
// @description Checkout, payment confirmation and order history

// @host localhost:8083
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
