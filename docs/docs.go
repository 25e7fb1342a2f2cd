// Package docs registers the OpenAPI description of the projection API with
// swag, which gin-swagger serves under /swagger.
package docs

import "github.com/swaggo/swag/v2"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "Consolidated debt, cash-flow and statement projections per harvest.",
        "version": "{{.Version}}"
    },
    "basePath": "{{.BasePath}}",
    "produces": ["application/json"],
    "paths": {
        "/projections/report": {
            "get": {
                "tags": ["projections"],
                "summary": "Full consolidated report",
                "parameters": [
                    {"$ref": "#/parameters/organizationId"},
                    {"$ref": "#/parameters/scenarioId"},
                    {"$ref": "#/parameters/projectionId"}
                ],
                "responses": {
                    "200": {"description": "Report", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"$ref": "#/responses/Invalid"},
                    "404": {"$ref": "#/responses/NotFound"},
                    "502": {"$ref": "#/responses/FetchFailed"},
                    "504": {"$ref": "#/responses/Timeout"}
                }
            }
        },
        "/projections/debt-position": {
            "get": {
                "tags": ["projections"],
                "summary": "Consolidated debt position and creditor ranking",
                "parameters": [
                    {"$ref": "#/parameters/organizationId"},
                    {"$ref": "#/parameters/scenarioId"},
                    {"$ref": "#/parameters/projectionId"}
                ],
                "responses": {
                    "200": {"description": "Debt position", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"$ref": "#/responses/Invalid"},
                    "502": {"$ref": "#/responses/FetchFailed"}
                }
            }
        },
        "/projections/cash-flow": {
            "get": {
                "tags": ["projections"],
                "summary": "Per-harvest cash flow with cumulative balance",
                "produces": ["application/json", "text/csv"],
                "parameters": [
                    {"$ref": "#/parameters/organizationId"},
                    {"$ref": "#/parameters/scenarioId"},
                    {"$ref": "#/parameters/projectionId"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["json", "csv"], "default": "json"}
                ],
                "responses": {
                    "200": {"description": "Cash flow envelope, or a CSV attachment with format=csv"},
                    "400": {"$ref": "#/responses/Invalid"},
                    "502": {"$ref": "#/responses/FetchFailed"}
                }
            }
        },
        "/projections/compare": {
            "get": {
                "tags": ["projections"],
                "summary": "Baseline against a scenario, per-harvest deltas",
                "parameters": [
                    {"$ref": "#/parameters/organizationId"},
                    {"name": "scenario_id", "in": "query", "required": true, "type": "string", "format": "uuid"}
                ],
                "responses": {
                    "200": {"description": "Comparison", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"$ref": "#/responses/Invalid"},
                    "404": {"$ref": "#/responses/NotFound"}
                }
            }
        },
        "/projections/cache": {
            "delete": {
                "tags": ["projections"],
                "summary": "Drop every cached report of an organization",
                "parameters": [{"$ref": "#/parameters/organizationId"}],
                "responses": {
                    "200": {"description": "Invalidated", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"$ref": "#/responses/Invalid"}
                }
            }
        }
    },
    "parameters": {
        "organizationId": {"name": "organization_id", "in": "query", "required": true, "type": "string", "format": "uuid",
            "description": "Also accepted as organizationId"},
        "scenarioId": {"name": "scenario_id", "in": "query", "type": "string", "format": "uuid",
            "description": "Also accepted as scenarioId; omitted means baseline"},
        "projectionId": {"name": "projection_id", "in": "query", "type": "string", "format": "uuid",
            "description": "Also accepted as projectionId; echoed back on the report"}
    },
    "responses": {
        "Invalid": {"description": "Missing or malformed query", "schema": {"$ref": "#/definitions/Error"}},
        "NotFound": {"description": "Unknown scenario", "schema": {"$ref": "#/definitions/Error"}},
        "FetchFailed": {"description": "An input registry failed", "schema": {"$ref": "#/definitions/Error"}},
        "Timeout": {"description": "Input fetch exceeded the deadline", "schema": {"$ref": "#/definitions/Error"}}
    },
    "definitions": {
        "Envelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {"type": "object"}
            }
        },
        "Error": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "error": {"type": "string"},
                "code": {"type": "string"},
                "details": {"type": "array", "items": {"type": "string"}},
                "request_id": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds the values substituted into the template.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/api/v1",
	Title:            "Agrodash Projection API",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
