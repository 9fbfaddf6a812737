package main

// @title User Service API
// @version 1.0
// @description Registration, login and user administration for the storefront

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @tag.name Auth
// @tag.description Authentication endpoints

// @tag.name Users
// @tag.description Profile endpoints

// @tag.name Admin
// @tag.description Admin-only endpoints
