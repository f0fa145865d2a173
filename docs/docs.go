// Package docs holds the OpenAPI description served at /swagger.
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
        "/api/v1/auth/register": {
            "post": {
                "tags": ["auth"],
                "summary": "Register a new account",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/api.registerRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request"},
                    "409": {"description": "Conflict"}
                }
            }
        },
        "/api/v1/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Log in with email and password",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/api.loginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/api/v1/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Current user",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/user.User"}},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/api/v1/rooms": {
            "get": {
                "tags": ["rooms"],
                "summary": "List rooms created by a user",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "creator id", "name": "userId", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/room.Summary"}}},
                    "400": {"description": "Bad Request"}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["rooms"],
                "summary": "Create a decision room",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/api.createRoomRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/room.Room"}},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/api/v1/rooms/mine": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["rooms"],
                "summary": "List rooms created by the caller",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/room.Summary"}}}
                }
            }
        },
        "/api/v1/rooms/{id}": {
            "get": {
                "tags": ["rooms"],
                "summary": "Get a room",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "room id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/room.Room"}},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/api/v1/rooms/{id}/vote": {
            "post": {
                "description": "Guests are identified by the X-Guest-ID header. A new id is minted and returned in the same header when none is sent.",
                "tags": ["rooms"],
                "summary": "Cast a vote",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "room id", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/api.voteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"},
                    "404": {"description": "Not Found"},
                    "409": {"description": "Conflict"},
                    "429": {"description": "Too Many Requests"}
                }
            }
        },
        "/api/v1/rooms/{id}/results": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Only the room creator may read results.",
                "tags": ["rooms"],
                "summary": "Room results",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "room id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/room.Result"}}},
                    "403": {"description": "Forbidden"},
                    "404": {"description": "Not Found"}
                }
            }
        }
    },
    "definitions": {
        "api.registerRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "api.loginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "api.createRoomRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "options": {"type": "array", "items": {"type": "string"}},
                "deadline": {"type": "string", "format": "date-time"}
            }
        },
        "api.voteRequest": {
            "type": "object",
            "properties": {
                "optionIndex": {"type": "integer"},
                "voterId": {"type": "string"},
                "justification": {"type": "string"}
            }
        },
        "room.Option": {
            "type": "object",
            "properties": {
                "text": {"type": "string"},
                "votes": {"type": "integer"},
                "justification": {"type": "array", "items": {"type": "string"}}
            }
        },
        "room.Room": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "creator": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "options": {"type": "array", "items": {"$ref": "#/definitions/room.Option"}},
                "deadline": {"type": "string", "format": "date-time"},
                "voters": {"type": "array", "items": {"type": "string"}},
                "createdAt": {"type": "string", "format": "date-time"},
                "updatedAt": {"type": "string", "format": "date-time"}
            }
        },
        "room.Summary": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "createdAt": {"type": "string", "format": "date-time"}
            }
        },
        "room.Result": {
            "type": "object",
            "properties": {
                "text": {"type": "string"},
                "votes": {"type": "integer"},
                "justification": {"type": "array", "items": {"type": "string"}}
            }
        },
        "user.User": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "username": {"type": "string"},
                "email": {"type": "string"},
                "createdAt": {"type": "string", "format": "date-time"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "PollPulse API",
	Description:      "Decision rooms with deadline-bound, one-vote-per-voter polling",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
