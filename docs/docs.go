// Package docs registers the OpenAPI description served at /docs.
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
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/user/signup": {
            "post": {
                "tags": ["user"], "summary": "Register with email and password",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/signupReq"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/authResp"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/envelope"}}
                }
            }
        },
        "/user/login": {
            "post": {
                "tags": ["user"], "summary": "Login with email and password",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/loginReq"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/authResp"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/envelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/envelope"}}
                }
            }
        },
        "/user/forgot-password": {
            "post": {
                "tags": ["user"], "summary": "Send a password reset link",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/forgotReq"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/envelope"}}
                }
            }
        },
        "/user/reset-password/{token}": {
            "get": {
                "tags": ["user"], "summary": "Check that a reset token is still usable",
                "produces": ["application/json"],
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/envelope"}}
                }
            },
            "post": {
                "tags": ["user"], "summary": "Set a new password with a reset token",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/resetReq"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/envelope"}}
                }
            }
        },
        "/user/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["user"], "summary": "Current user", "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/userResp"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/envelope"}}
                }
            }
        },
        "/user/score": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["user"], "summary": "Submit a quiz score",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/scoreReq"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/userResp"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/envelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/envelope"}}
                }
            }
        },
        "/auth/google": {
            "get": {"tags": ["auth"], "summary": "Start Google login", "responses": {"302": {"description": "Found"}}}
        },
        "/auth/google/callback": {
            "get": {
                "tags": ["auth"], "summary": "Google OAuth callback",
                "description": "Redirects to the frontend with the bearer token, or to the registration page on failure.",
                "parameters": [
                    {"name": "state", "in": "query", "required": true, "type": "string"},
                    {"name": "code", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {"302": {"description": "Found"}}
            }
        },
        "/.well-known/jwks.json": {
            "get": {
                "tags": ["auth"], "summary": "Public keys for RS256 tokens", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/security.JWKS"}}}
            }
        }
    },
    "definitions": {
        "envelope": {"type": "object", "properties": {"success": {"type": "boolean"}, "message": {"type": "string"}}},
        "signupReq": {"type": "object", "properties": {"username": {"type": "string"}, "email": {"type": "string"}, "password": {"type": "string"}}},
        "loginReq": {"type": "object", "properties": {"email": {"type": "string"}, "password": {"type": "string"}}},
        "forgotReq": {"type": "object", "properties": {"email": {"type": "string"}}},
        "resetReq": {"type": "object", "properties": {"password": {"type": "string"}}},
        "scoreReq": {"type": "object", "properties": {
            "difficulty": {"type": "string", "enum": ["easy", "medium", "hard"]},
            "score": {"type": "integer"},
            "label": {"type": "string"}
        }},
        "authResp": {"type": "object", "properties": {
            "success": {"type": "boolean"}, "message": {"type": "string"}, "token": {"type": "string"},
            "user": {"$ref": "#/definitions/domain.User"}
        }},
        "userResp": {"type": "object", "properties": {
            "success": {"type": "boolean"}, "message": {"type": "string"},
            "user": {"$ref": "#/definitions/domain.User"}
        }},
        "domain.Scores": {"type": "object", "properties": {"easy": {"type": "integer"}, "medium": {"type": "integer"}, "hard": {"type": "integer"}}},
        "domain.ScoreEntry": {"type": "object", "properties": {
            "difficulty": {"type": "string"}, "value": {"type": "integer"}, "label": {"type": "string"},
            "createdAt": {"type": "string", "format": "date-time"}
        }},
        "domain.User": {"type": "object", "properties": {
            "id": {"type": "string"}, "email": {"type": "string"}, "username": {"type": "string"},
            "googleId": {"type": "string"},
            "scores": {"$ref": "#/definitions/domain.Scores"},
            "history": {"type": "array", "items": {"$ref": "#/definitions/domain.ScoreEntry"}},
            "createdAt": {"type": "string", "format": "date-time"},
            "updatedAt": {"type": "string", "format": "date-time"}
        }},
        "security.JWKS": {"type": "object", "properties": {"keys": {"type": "array", "items": {"type": "object"}}}}
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Quiz Auth Service API",
	Description:      "Accounts, sessions, password reset and quiz scores.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
