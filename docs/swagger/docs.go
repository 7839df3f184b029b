// Package swagger contains the API documentation template swag
// registers with gin-swagger at import time. Regenerate with
// `swag init -o docs/swagger` after changing any handler's swagger
// annotations; this hand-maintained copy covers
// /.well-known/openid-federation, /fetch, GET /manage/entity, /health
// and /ready only.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "termsOfService": "https://github.com/SUNET/go-federation",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/.well-known/openid-federation": {
            "get": {
                "produces": ["application/entity-statement+jwt"],
                "tags": ["Federation"],
                "summary": "Entity Configuration",
                "responses": {"200": {"description": "signed JWT"}}
            }
        },
        "/fetch": {
            "get": {
                "produces": ["application/entity-statement+jwt"],
                "tags": ["Federation"],
                "summary": "Subordinate Statement",
                "parameters": [{"type": "string", "name": "sub", "in": "query", "required": true}],
                "responses": {"200": {"description": "signed JWT"}, "400": {"description": "bad request"}, "404": {"description": "not found"}}
            }
        },
        "/manage/entity": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Management"],
                "summary": "Read Entity State summary",
                "responses": {"200": {"description": "entity summary"}}
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Liveness check",
                "responses": {"200": {"description": "ok"}}
            }
        },
        "/ready": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Readiness check",
                "responses": {"200": {"description": "ready"}, "503": {"description": "not ready"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "",
	Schemes:          []string{},
	Title:            "go-federation API",
	Description:      "OpenID Federation 1.0 entity: Entity Configuration, Subordinate Statements, Trust Chain Resolver, Trust Mark Validator, and the AuthZEN Trust Registry bridge.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
