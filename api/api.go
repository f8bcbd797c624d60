package api

import _ "embed"

// OpenAPISpec is the HTTP contract served at /openapi.yml and used for request validation.
//
//go:embed openapi.yml
var OpenAPISpec []byte
