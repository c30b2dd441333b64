//go:build swagger

// Package apidocs holds the OpenAPI document served at /swagger/ when the
// binary is built with -tags=swagger.
package apidocs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {"name": "MIT", "url": "https://opensource.org/licenses/MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/tags": {
            "get": {
                "produces": ["application/json"],
                "summary": "List installed models (Ollama format)",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.TagsResponse"}}}
            }
        },
        "/api/version": {
            "get": {
                "produces": ["application/json"],
                "summary": "Report the emulated Ollama version",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.VersionResponse"}}}
            }
        },
        "/v1/models": {
            "get": {
                "produces": ["application/json"],
                "summary": "List installed models (OpenAI format)",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.OpenAIModelList"}}}
            }
        },
        "/v1/chat/completions": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json", "text/event-stream"],
                "summary": "Select the model named in the body and forward to llama-server",
                "responses": {
                    "200": {"description": "Backend response, streamed"},
                    "400": {"description": "Invalid JSON", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Model not found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "500": {"description": "Model failed to load", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "502": {"description": "Backend unreachable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "summary": "Supervisor and registry state",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}
            }
        }
    },
    "definitions": {
        "types.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}, "code": {"type": "integer"}}
        },
        "types.VersionResponse": {
            "type": "object",
            "properties": {"version": {"type": "string"}}
        },
        "types.ModelDetails": {
            "type": "object",
            "properties": {
                "format": {"type": "string"},
                "family": {"type": "string"},
                "families": {"type": "array", "items": {"type": "string"}},
                "parameter_size": {"type": "string"},
                "quantization_level": {"type": "string"}
            }
        },
        "types.ModelTag": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "model": {"type": "string"},
                "modified_at": {"type": "string"},
                "size": {"type": "integer"},
                "digest": {"type": "string"},
                "details": {"$ref": "#/definitions/types.ModelDetails"}
            }
        },
        "types.TagsResponse": {
            "type": "object",
            "properties": {"models": {"type": "array", "items": {"$ref": "#/definitions/types.ModelTag"}}}
        },
        "types.OpenAIModel": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "object": {"type": "string"},
                "created": {"type": "integer"},
                "owned_by": {"type": "string"}
            }
        },
        "types.OpenAIModelList": {
            "type": "object",
            "properties": {
                "object": {"type": "string"},
                "data": {"type": "array", "items": {"$ref": "#/definitions/types.OpenAIModel"}}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "backend": {"type": "object"},
                "registry_keys": {"type": "integer"},
                "uptime_seconds": {"type": "integer"},
                "server_time_unix": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "llamagate API",
	Description:      "Ollama and OpenAI compatible gateway in front of a single llama.cpp server.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
