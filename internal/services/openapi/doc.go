// Package openapi downloads OpenAPI and Swagger documents and extracts the
// descriptive fields the wizard needs, resolving HTML viewer pages to the
// underlying JSON document when users paste a Swagger UI link.
package openapi
