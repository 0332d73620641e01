package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Planner Sync API",
        "description": "Shared multi-calendar schedule store with optimistic concurrency and three-way merge",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Calendars", "description": "Calendar registry and schedule state"}
    ],
    "paths": {
        "/calendars": {
            "get": {
                "tags": ["Calendars"],
                "summary": "List calendars",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Calendars"],
                "summary": "Create calendar",
                "parameters": [
                    {"name": "payload", "in": "body", "required": false, "schema": {"$ref": "#/definitions/CreateCalendarRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid name", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendars/{id}": {
            "get": {
                "tags": ["Calendars"],
                "summary": "Get calendar",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "headers": {"X-Calendar-Revision": {"type": "integer"}},
                        "schema": {"$ref": "#/definitions/ResponseEnvelope"}
                    },
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Calendars"],
                "summary": "Save calendar state",
                "description": "Stores the client's state. When baseRevision is stale the state is three-way merged against baseState.",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveCalendarRequest"}}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "headers": {"X-Calendar-Revision": {"type": "integer"}},
                        "schema": {"$ref": "#/definitions/ResponseEnvelope"}
                    },
                    "400": {"description": "Malformed body", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "500": {"description": "Storage error or merge invariant violation", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Calendars"],
                "summary": "Rename calendar",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RenameCalendarRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid name", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Calendars"],
                "summary": "Delete calendar",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendars/{id}/export": {
            "get": {
                "tags": ["Calendars"],
                "summary": "Export calendar",
                "produces": ["text/calendar", "text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["ics", "csv", "pdf"], "default": "ics"}
                ],
                "responses": {
                    "200": {"description": "File download", "schema": {"type": "file"}},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateCalendarRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "maxLength": 200}
            }
        },
        "RenameCalendarRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string", "minLength": 1, "maxLength": 200}
            }
        },
        "SaveCalendarRequest": {
            "type": "object",
            "required": ["state"],
            "properties": {
                "state": {"$ref": "#/definitions/ScheduleState"},
                "baseState": {"$ref": "#/definitions/ScheduleState"},
                "baseRevision": {"type": "integer"}
            }
        },
        "ScheduleState": {
            "type": "object",
            "properties": {
                "numDays": {"type": "integer"},
                "startDate": {"type": "string", "example": "2026-03-02"},
                "startHour": {"type": "integer"},
                "endHour": {"type": "integer"},
                "viewMode": {"type": "string", "enum": ["row", "grid", "day"]},
                "events": {
                    "type": "object",
                    "additionalProperties": {"type": "array", "items": {"$ref": "#/definitions/Event"}}
                }
            }
        },
        "Event": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "dayIndex": {"type": "integer"},
                "startMinutes": {"type": "integer"},
                "endMinutes": {"type": "integer"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "color": {"type": "string"},
                "location": {"$ref": "#/definitions/Place"},
                "destination": {"$ref": "#/definitions/Place"},
                "routeMode": {"type": "string", "enum": ["simple", "precise", "hidden"]},
                "routeCache": {"type": "object"}
            }
        },
        "Place": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "lat": {"type": "number"},
                "lng": {"type": "number"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
