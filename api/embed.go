// Package api carries the WatchVault REST API description.
package api

import _ "embed"

// OpenAPIDocument is the OpenAPI 3.0 description of the /v1 media-list API,
// served at /v1/docs/openapi.yaml.
//
//go:embed openapi.yaml
var OpenAPIDocument []byte
