// Package docs registers the OpenAPI description served under /swagger.
// Regenerate with `swag init -g cmd/api/main.go` after changing handler
// annotations.
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
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/auth/register": {
            "post": {"tags": ["auth"], "summary": "Create an account", "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}}
        },
        "/auth/login": {
            "post": {"tags": ["auth"], "summary": "Exchange credentials for a bearer token", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}
        },
        "/habits": {
            "get": {"tags": ["habits"], "summary": "List active habits", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["habits"], "summary": "Create a habit", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}}
        },
        "/habits/sync": {
            "get": {"tags": ["habits"], "summary": "Habits changed since a checkpoint, tombstones included", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/habits/{id}": {
            "put": {"tags": ["habits"], "summary": "Partially update a habit, creating it when unknown", "security": [{"BearerAuth": []}], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}
        },
        "/habits/{id}/streaks": {
            "get": {"tags": ["history"], "summary": "Current and longest streak", "security": [{"BearerAuth": []}], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "as_of", "in": "query"}], "responses": {"200": {"description": "OK"}}}
        },
        "/habits/{id}/calendar": {
            "get": {"tags": ["history"], "summary": "Six-week grid of a month with completion and streak marks", "security": [{"BearerAuth": []}], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "month", "in": "query"}, {"type": "string", "name": "as_of", "in": "query"}], "responses": {"200": {"description": "OK"}}}
        },
        "/habits/{id}/due": {
            "get": {"tags": ["history"], "summary": "Whether the habit is due on a date, or its due dates in [from, to]", "security": [{"BearerAuth": []}], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "date", "in": "query"}, {"type": "string", "name": "from", "in": "query"}, {"type": "string", "name": "to", "in": "query"}], "responses": {"200": {"description": "OK"}}}
        },
        "/entries": {
            "get": {"tags": ["entries"], "summary": "Entries of a habit in a time window", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["entries"], "summary": "Log a completion", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}}}
        },
        "/stats/weekly": {
            "get": {"tags": ["stats"], "summary": "Completion rates over a period", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Kanso Habit Engine API",
	Description:      "Habit scheduling, streaks and calendar views with offline sync.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
