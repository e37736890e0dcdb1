package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           dungeond API
// @version         1.0
// @description     HTTP API for dungeon game sessions: state queries, action submission and event streaming.
//
// @contact.name   dungeond maintainers
// @contact.url    https://github.com/veighnsche/dungeond
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
