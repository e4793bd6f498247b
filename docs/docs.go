// Package docs registers the OpenAPI description served at /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/assistant": {
            "post": {
                "description": "Upload one recording in the audio field. Progress is pushed to the device stream; with async=true the call returns as soon as the run is admitted.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["Assistant"],
                "summary": "Run the voice pipeline",
                "parameters": [
                    {"type": "file", "description": "Recorded audio", "name": "audio", "in": "formData", "required": true},
                    {"type": "boolean", "description": "Return 202 immediately", "name": "async", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Run finished", "schema": {"$ref": "#/definitions/handlers.RunResponse"}},
                    "202": {"description": "Run admitted", "schema": {"$ref": "#/definitions/handlers.StartRunResponse"}},
                    "400": {"description": "Invalid upload or missing device", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "A run is already in flight for this device", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "502": {"description": "A collaborator failed or the model reply was unusable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/chats": {
            "get": {
                "description": "Server-Sent Events stream of the device's signals and messages, with a keep-alive comment on idle.",
                "produces": ["text/event-stream"],
                "tags": ["Chats"],
                "summary": "Subscribe to device events",
                "responses": {
                    "200": {"description": "Event stream"},
                    "400": {"description": "Missing device", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/chats/ws": {
            "get": {
                "description": "WebSocket variant of /chats; one text message per event.",
                "tags": ["Chats"],
                "summary": "Subscribe to device events over WebSocket",
                "responses": {
                    "101": {"description": "Switching protocols"}
                }
            }
        },
        "/runs": {
            "get": {
                "description": "Latest run outcomes of the calling device, newest first.",
                "produces": ["application/json"],
                "tags": ["Runs"],
                "summary": "List recent runs",
                "parameters": [
                    {"type": "integer", "description": "Maximum number of runs", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Runs", "schema": {"$ref": "#/definitions/handlers.ListRunsResponse"}},
                    "400": {"description": "Invalid limit", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "events.Message": {
            "type": "object",
            "properties": {
                "owner": {"type": "string", "enum": ["user", "assistant"]},
                "kind": {"type": "string", "enum": ["text", "speech", "image"]},
                "content": {"type": "string"},
                "url": {"type": "string"},
                "timestamp": {"type": "string", "format": "date-time"}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "string"},
                "details": {"type": "string"}
            }
        },
        "handlers.RunResponse": {
            "type": "object",
            "properties": {
                "runId": {"type": "string"},
                "transcript": {"type": "string"},
                "reply": {"$ref": "#/definitions/events.Message"}
            }
        },
        "handlers.StartRunResponse": {
            "type": "object",
            "properties": {
                "runId": {"type": "string"}
            }
        },
        "handlers.RunSummary": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "finalState": {"type": "string"},
                "decision": {"type": "string"},
                "errorCode": {"type": "string"},
                "startedAt": {"type": "string", "format": "date-time"},
                "durationMs": {"type": "integer"}
            }
        },
        "handlers.ListRunsResponse": {
            "type": "object",
            "properties": {
                "runs": {"type": "array", "items": {"$ref": "#/definitions/handlers.RunSummary"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "ava API",
	Description:      "Voice assistant backend: uploads, device event streams and run history.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
