// Package schemas embeds the OpenAPI definition of the quill plugin API.
// The server validates inbound requests against it via platform/validation.
package schemas

import _ "embed"

// OpenAPISpec is the raw YAML of the plugin API definition.
//
//go:embed openapi.yaml
var OpenAPISpec []byte
