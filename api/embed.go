package api

import _ "embed"

// OpenAPISpec holds the OpenAPI 3.0 description of the catalog API.
//
//go:embed openapi.yaml
var OpenAPISpec []byte
