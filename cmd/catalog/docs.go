package main

// @title Catalog Service API
// @version 1.0
// @description Products, departments and fabrics of the storefront, with the admin back-office

// @host localhost:8081
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
