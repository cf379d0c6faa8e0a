package main

// General API documentation for swaggo. Run `swag init -g cmd/vulnd/docs.go`
// to generate docs.
//
// @title           vulnd API
// @version         1.0
// @description     HTTP API for ML-based source code vulnerability detection.
//
// @contact.name   vulnd maintainers
// @contact.url    https://github.com/your-org/vulnd
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
