// Package docs registers the OpenAPI description of the JSON API served at
// /swagger.
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
        "/portfolio": {
            "get": {
                "produces": ["application/json"],
                "tags": ["portfolio"],
                "summary": "Current portfolio",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.PortfolioResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/history": {
            "get": {
                "produces": ["application/json"],
                "tags": ["history"],
                "summary": "Trade history, most recent first",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/service.HistoryEntry"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/quote/{symbol}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["quote"],
                "summary": "Current quote of a symbol",
                "parameters": [
                    {"type": "string", "description": "Ticker symbol", "name": "symbol", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.QuoteResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "error": {"type": "string"},
                "request_id": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        },
        "api.PortfolioResponse": {
            "type": "object",
            "properties": {
                "cash": {"type": "string"},
                "cash_display": {"type": "string"},
                "positions": {"type": "array", "items": {"$ref": "#/definitions/domain.Position"}},
                "total": {"type": "string"},
                "total_display": {"type": "string"}
            }
        },
        "api.QuoteResponse": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "price": {"type": "string"},
                "price_display": {"type": "string"},
                "symbol": {"type": "string"}
            }
        },
        "domain.Position": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "price": {"type": "string"},
                "shares": {"type": "integer"},
                "symbol": {"type": "string"},
                "value": {"type": "string"}
            }
        },
        "service.HistoryEntry": {
            "type": "object",
            "properties": {
                "amount": {"type": "string"},
                "amount_display": {"type": "string"},
                "id": {"type": "integer"},
                "price": {"type": "string"},
                "price_display": {"type": "string"},
                "shares": {"type": "integer"},
                "side": {"type": "string"},
                "symbol": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "PaperTrader API",
	Description:      "JSON projections of the paper trading portfolio",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
