// Package docs registers the MallMap OpenAPI document with swag.
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
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Log in",
                "description": "Exchange username and password for a bearer token",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {
                        "in": "body",
                        "name": "request",
                        "description": "Credentials",
                        "required": true,
                        "schema": {"$ref": "#/definitions/LoginRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/AuthResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/MessageResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/MessageResponse"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Current caller",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Caller"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/MessageResponse"}}
                }
            }
        },
        "/malls": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["malls"],
                "summary": "List malls",
                "description": "Every mall with its stores",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/Mall"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/MessageResponse"}}
                }
            }
        },
        "/malls/nearby": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["malls"],
                "summary": "Malls near a point",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "number", "description": "Latitude", "name": "lat", "in": "query", "required": true},
                    {"type": "number", "description": "Longitude", "name": "lng", "in": "query", "required": true},
                    {"type": "number", "default": 5000, "description": "Radius in meters", "name": "radius", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/Mall"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/MessageResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/MessageResponse"}}
                }
            }
        },
        "/malls/{mallId}/toggle": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "tags": ["malls"],
                "summary": "Open or close a mall",
                "description": "Admin only. Closing a mall closes all of its stores",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "description": "Mall ID", "name": "mallId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/MallStatus"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/MessageResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/MessageResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/MessageResponse"}}
                }
            }
        },
        "/malls/{mallId}/stores/{storeId}/toggle": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "tags": ["stores"],
                "summary": "Open or close a store",
                "description": "Manager only. A closed store cannot be opened while its mall is closed",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "description": "Mall ID", "name": "mallId", "in": "path", "required": true},
                    {"type": "integer", "description": "Store ID", "name": "storeId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/StoreStatus"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/MessageResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/MessageResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/MessageResponse"}}
                }
            }
        },
        "/malls/{mallId}/stores/{storeId}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["stores"],
                "summary": "Update store details",
                "description": "Store accounts only. Empty fields in the body are left unchanged",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "description": "Mall ID", "name": "mallId", "in": "path", "required": true},
                    {"type": "integer", "description": "Store ID", "name": "storeId", "in": "path", "required": true},
                    {"in": "body", "name": "request", "description": "Fields to change", "required": true, "schema": {"$ref": "#/definitions/StorePatch"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/StoreWithMall"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/MessageResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/MessageResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/MessageResponse"}}
                }
            }
        },
        "/stores": {
            "get": {
                "tags": ["stores"],
                "summary": "List stores for the map",
                "description": "Every store with jittered display coordinates and a website",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/StoreView"}}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string", "example": "admin"},
                "password": {"type": "string", "example": "password123"}
            }
        },
        "AuthResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "tokenType": {"type": "string", "example": "Bearer"},
                "expiresIn": {"type": "integer", "example": 86400},
                "user": {"$ref": "#/definitions/Caller"}
            }
        },
        "Caller": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "role": {"type": "string", "enum": ["admin", "manager", "store"]},
                "storeId": {"type": "integer"}
            }
        },
        "Contact": {
            "type": "object",
            "properties": {
                "phone": {"type": "string"},
                "email": {"type": "string"},
                "website": {"type": "string"}
            }
        },
        "Store": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "type": {"type": "string"},
                "opening_hours": {"type": "string"},
                "isOpen": {"type": "boolean"},
                "description": {"type": "string"},
                "contact": {"$ref": "#/definitions/Contact"}
            }
        },
        "Mall": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "isOpen": {"type": "boolean"},
                "stores": {"type": "array", "items": {"$ref": "#/definitions/Store"}}
            }
        },
        "MallStatus": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "isOpen": {"type": "boolean"}
            }
        },
        "StoreStatus": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "isOpen": {"type": "boolean"},
                "mallId": {"type": "integer"}
            }
        },
        "StorePatch": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "opening_hours": {"type": "string"},
                "type": {"type": "string"},
                "contact": {"$ref": "#/definitions/Contact"}
            }
        },
        "StoreWithMall": {
            "allOf": [
                {"$ref": "#/definitions/Store"},
                {
                    "type": "object",
                    "properties": {
                        "mallId": {"type": "integer"},
                        "mallName": {"type": "string"}
                    }
                }
            ]
        },
        "StoreView": {
            "allOf": [
                {"$ref": "#/definitions/StoreWithMall"},
                {
                    "type": "object",
                    "properties": {
                        "latitude": {"type": "number"},
                        "longitude": {"type": "number"},
                        "website": {"type": "string"}
                    }
                }
            ]
        },
        "MessageResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header",
            "description": "Type 'Bearer' followed by a space and JWT token"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{"http", "https"},
	Title:            "MallMap API",
	Description:      "Mall and store status API for the Qatar mall map",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
