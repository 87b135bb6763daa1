// Package docs registers the OpenAPI document served under /swagger/.
// Regenerate with: swag init -g cmd/civil360/main.go --parseInternal
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
	"schemes": {{ marshal .Schemes }},
	"swagger": "2.0",
	"info": {
		"description": "{{escape .Description}}",
		"title": "{{.Title}}",
		"contact": {},
		"version": "{{.Version}}"
	},
	"host": "{{.Host}}",
	"basePath": "{{.BasePath}}",
	"paths": {
		"/auth/login": {
			"post": {
				"tags": [
					"auth"
				],
				"summary": "Login",
				"produces": [
					"application/json"
				],
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handler.loginRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handler.tokenResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					},
					"429": {
						"description": "Too Many Requests",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					}
				}
			}
		},
		"/auth/mock-login": {
			"post": {
				"tags": [
					"auth"
				],
				"summary": "Development login by role",
				"produces": [
					"application/json"
				],
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Role to impersonate",
						"name": "body",
						"in": "body",
						"schema": {
							"$ref": "#/definitions/handler.mockLoginRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handler.tokenResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					}
				}
			}
		},
		"/auth/refresh": {
			"post": {
				"tags": [
					"auth"
				],
				"summary": "Refresh the session token",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handler.tokenResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					}
				}
			}
		},
		"/auth/me": {
			"get": {
				"tags": [
					"auth"
				],
				"summary": "Current identity",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handler.meResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					}
				}
			}
		},
		"/auth/change-password": {
			"post": {
				"tags": [
					"auth"
				],
				"summary": "Change password",
				"produces": [
					"application/json"
				],
				"consumes": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handler.changePasswordRequest"
						}
					}
				],
				"responses": {
					"204": {
						"description": "No Content"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					},
					"422": {
						"description": "Unprocessable Entity",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					}
				}
			}
		},
		"/v1/users": {
			"get": {
				"tags": [
					"users"
				],
				"summary": "List users",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "integer",
						"description": "Page number (1-based)",
						"name": "page",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "Page size (max 100)",
						"name": "limit",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					}
				}
			},
			"post": {
				"tags": [
					"users"
				],
				"summary": "Create a user",
				"produces": [
					"application/json"
				],
				"consumes": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handler.createUserRequest"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/domain.User"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					}
				}
			}
		},
		"/v1/users/{id}/active": {
			"patch": {
				"tags": [
					"users"
				],
				"summary": "Activate or deactivate a user",
				"produces": [
					"application/json"
				],
				"consumes": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"description": "ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handler.setActiveRequest"
						}
					}
				],
				"responses": {
					"204": {
						"description": "No Content"
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					}
				}
			}
		},
		"/v1/equipment": {
			"get": {
				"tags": [
					"equipment"
				],
				"summary": "List equipment",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"name": "status",
						"in": "query"
					},
					{
						"type": "string",
						"name": "project_id",
						"in": "query"
					},
					{
						"type": "string",
						"name": "category",
						"in": "query"
					},
					{
						"type": "string",
						"name": "search",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "Page number (1-based)",
						"name": "page",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "Page size (max 100)",
						"name": "limit",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					}
				}
			},
			"post": {
				"tags": [
					"equipment"
				],
				"summary": "Register equipment",
				"produces": [
					"application/json"
				],
				"consumes": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handler.createEquipmentRequest"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/domain.Equipment"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					},
					"422": {
						"description": "Unprocessable Entity",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					}
				}
			}
		},
		"/v1/equipment/{id}": {
			"get": {
				"tags": [
					"equipment"
				],
				"summary": "Get equipment by ID",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"description": "ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/domain.Equipment"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					}
				}
			},
			"patch": {
				"tags": [
					"equipment"
				],
				"summary": "Update equipment",
				"produces": [
					"application/json"
				],
				"consumes": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"description": "ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handler.updateEquipmentRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/domain.Equipment"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					}
				}
			}
		},
		"/v1/equipment/{id}/telemetry": {
			"post": {
				"tags": [
					"equipment"
				],
				"summary": "Record a tracker position",
				"produces": [
					"application/json"
				],
				"consumes": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"description": "ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handler.telemetryRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/domain.Equipment"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					}
				}
			}
		},
		"/v1/purchase-orders": {
			"get": {
				"tags": [
					"purchase-orders"
				],
				"summary": "List purchase orders",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"name": "status",
						"in": "query"
					},
					{
						"type": "string",
						"name": "project_id",
						"in": "query"
					},
					{
						"type": "string",
						"name": "supplier",
						"in": "query"
					},
					{
						"type": "string",
						"name": "requested_by",
						"in": "query"
					},
					{
						"type": "string",
						"name": "date_from",
						"in": "query"
					},
					{
						"type": "string",
						"name": "date_to",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "Page number (1-based)",
						"name": "page",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "Page size (max 100)",
						"name": "limit",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					}
				}
			},
			"post": {
				"tags": [
					"purchase-orders"
				],
				"summary": "Create a purchase order",
				"produces": [
					"application/json"
				],
				"consumes": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"description": "Client-generated key for safe retries",
						"name": "Idempotency-Key",
						"in": "header"
					},
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handler.createOrderRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "Replayed",
						"schema": {
							"$ref": "#/definitions/domain.PurchaseOrder"
						}
					},
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/domain.PurchaseOrder"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					},
					"422": {
						"description": "Unprocessable Entity",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					}
				}
			}
		},
		"/v1/purchase-orders/{id}": {
			"get": {
				"tags": [
					"purchase-orders"
				],
				"summary": "Get a purchase order",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"description": "ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/domain.PurchaseOrder"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					}
				}
			}
		},
		"/v1/purchase-orders/{id}/transitions": {
			"post": {
				"tags": [
					"purchase-orders"
				],
				"summary": "Change a purchase order status",
				"produces": [
					"application/json"
				],
				"consumes": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"description": "ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handler.transitionRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/domain.PurchaseOrder"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					},
					"422": {
						"description": "Unprocessable Entity",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					}
				}
			}
		},
		"/v1/notifications": {
			"get": {
				"tags": [
					"notifications"
				],
				"summary": "List my notifications",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "boolean",
						"description": "Only unread",
						"name": "unread",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "Page number (1-based)",
						"name": "page",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "Page size (max 100)",
						"name": "limit",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					}
				}
			}
		},
		"/v1/notifications/{id}/read": {
			"post": {
				"tags": [
					"notifications"
				],
				"summary": "Mark a notification as read",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"description": "ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"204": {
						"description": "No Content"
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/handler.errorResponse"
						}
					}
				}
			}
		},
		"/health": {
			"get": {
				"tags": [
					"health"
				],
				"summary": "Liveness probe",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					}
				}
			}
		},
		"/health/ready": {
			"get": {
				"tags": [
					"health"
				],
				"summary": "Readiness probe",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"503": {
						"description": "Service Unavailable"
					}
				}
			}
		}
	},
	"definitions": {
		"handler.errorResponse": {
			"type": "object",
			"properties": {
				"error": {
					"type": "string"
				},
				"code": {
					"type": "string"
				}
			}
		},
		"handler.loginRequest": {
			"type": "object",
			"properties": {
				"username": {
					"type": "string"
				},
				"password": {
					"type": "string"
				}
			},
			"required": [
				"password",
				"username"
			]
		},
		"handler.mockLoginRequest": {
			"type": "object",
			"properties": {
				"role": {
					"type": "string",
					"enum": [
						"general_director",
						"project_engineer",
						"purchasing_manager",
						"logistics_manager",
						"site_supervisor",
						"quality_inspector",
						"worker"
					]
				}
			}
		},
		"handler.changePasswordRequest": {
			"type": "object",
			"properties": {
				"current_password": {
					"type": "string"
				},
				"new_password": {
					"type": "string",
					"minLength": 6
				}
			},
			"required": [
				"current_password",
				"new_password"
			]
		},
		"handler.tokenResponse": {
			"type": "object",
			"properties": {
				"token": {
					"type": "string"
				},
				"user": {
					"$ref": "#/definitions/domain.Identity"
				}
			}
		},
		"handler.meResponse": {
			"type": "object",
			"properties": {
				"user": {
					"$ref": "#/definitions/domain.Identity"
				}
			}
		},
		"handler.createUserRequest": {
			"type": "object",
			"properties": {
				"username": {
					"type": "string"
				},
				"password": {
					"type": "string",
					"minLength": 6
				},
				"display_name": {
					"type": "string"
				},
				"email": {
					"type": "string"
				},
				"role": {
					"type": "string",
					"enum": [
						"general_director",
						"project_engineer",
						"purchasing_manager",
						"logistics_manager",
						"site_supervisor",
						"quality_inspector",
						"worker"
					]
				}
			},
			"required": [
				"password",
				"role",
				"username"
			]
		},
		"handler.setActiveRequest": {
			"type": "object",
			"properties": {
				"active": {
					"type": "boolean"
				}
			},
			"required": [
				"active"
			]
		},
		"handler.createEquipmentRequest": {
			"type": "object",
			"properties": {
				"code": {
					"type": "string"
				},
				"name": {
					"type": "string"
				},
				"category": {
					"type": "string"
				},
				"status": {
					"type": "string",
					"enum": [
						"available",
						"in_use",
						"maintenance",
						"out_of_service"
					]
				},
				"project_id": {
					"type": "string"
				}
			},
			"required": [
				"category",
				"code",
				"name"
			]
		},
		"handler.updateEquipmentRequest": {
			"type": "object",
			"properties": {
				"name": {
					"type": "string"
				},
				"category": {
					"type": "string"
				},
				"status": {
					"type": "string",
					"enum": [
						"available",
						"in_use",
						"maintenance",
						"out_of_service"
					]
				},
				"project_id": {
					"type": "string"
				},
				"is_active": {
					"type": "boolean"
				}
			}
		},
		"handler.telemetryRequest": {
			"type": "object",
			"properties": {
				"lat": {
					"type": "number"
				},
				"lng": {
					"type": "number"
				},
				"recorded_at": {
					"type": "string"
				}
			},
			"required": [
				"lat",
				"lng"
			]
		},
		"handler.orderItemRequest": {
			"type": "object",
			"properties": {
				"description": {
					"type": "string"
				},
				"quantity": {
					"type": "integer",
					"minimum": 1
				},
				"unit_price": {
					"type": "string"
				}
			},
			"required": [
				"description",
				"quantity",
				"unit_price"
			]
		},
		"handler.createOrderRequest": {
			"type": "object",
			"properties": {
				"supplier": {
					"type": "string"
				},
				"project_id": {
					"type": "string"
				},
				"currency": {
					"type": "string"
				},
				"items": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/handler.orderItemRequest"
					}
				}
			},
			"required": [
				"items",
				"project_id",
				"supplier"
			]
		},
		"handler.transitionRequest": {
			"type": "object",
			"properties": {
				"status": {
					"type": "string",
					"enum": [
						"submitted",
						"approved",
						"rejected",
						"delivered",
						"cancelled"
					]
				},
				"note": {
					"type": "string"
				}
			},
			"required": [
				"status"
			]
		},
		"domain.Identity": {
			"type": "object",
			"properties": {
				"id": {
					"type": "string"
				},
				"username": {
					"type": "string"
				},
				"display_name": {
					"type": "string"
				},
				"role": {
					"type": "string",
					"enum": [
						"general_director",
						"project_engineer",
						"purchasing_manager",
						"logistics_manager",
						"site_supervisor",
						"quality_inspector",
						"worker"
					]
				},
				"email": {
					"type": "string"
				}
			}
		},
		"domain.User": {
			"type": "object",
			"properties": {
				"id": {
					"type": "string"
				},
				"username": {
					"type": "string"
				},
				"display_name": {
					"type": "string"
				},
				"email": {
					"type": "string"
				},
				"role": {
					"type": "string"
				},
				"is_active": {
					"type": "boolean"
				},
				"created_at": {
					"type": "string"
				},
				"updated_at": {
					"type": "string"
				}
			}
		},
		"domain.Coordinates": {
			"type": "object",
			"properties": {
				"lat": {
					"type": "number"
				},
				"lng": {
					"type": "number"
				}
			}
		},
		"domain.Equipment": {
			"type": "object",
			"properties": {
				"id": {
					"type": "string"
				},
				"code": {
					"type": "string"
				},
				"name": {
					"type": "string"
				},
				"category": {
					"type": "string"
				},
				"status": {
					"type": "string"
				},
				"project_id": {
					"type": "string"
				},
				"location": {
					"$ref": "#/definitions/domain.Coordinates"
				},
				"last_telemetry_at": {
					"type": "string"
				},
				"is_active": {
					"type": "boolean"
				},
				"created_at": {
					"type": "string"
				},
				"updated_at": {
					"type": "string"
				}
			}
		},
		"domain.OrderItem": {
			"type": "object",
			"properties": {
				"description": {
					"type": "string"
				},
				"quantity": {
					"type": "integer"
				},
				"unit_price": {
					"type": "string"
				}
			}
		},
		"domain.OrderHistoryEntry": {
			"type": "object",
			"properties": {
				"status": {
					"type": "string"
				},
				"changed_by": {
					"type": "string"
				},
				"timestamp": {
					"type": "string"
				},
				"note": {
					"type": "string"
				}
			}
		},
		"domain.PurchaseOrder": {
			"type": "object",
			"properties": {
				"id": {
					"type": "string"
				},
				"number": {
					"type": "string"
				},
				"supplier": {
					"type": "string"
				},
				"project_id": {
					"type": "string"
				},
				"items": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/domain.OrderItem"
					}
				},
				"total": {
					"type": "string"
				},
				"currency": {
					"type": "string"
				},
				"status": {
					"type": "string"
				},
				"requested_by": {
					"type": "string"
				},
				"status_history": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/domain.OrderHistoryEntry"
					}
				},
				"created_at": {
					"type": "string"
				},
				"updated_at": {
					"type": "string"
				}
			}
		},
		"domain.Notification": {
			"type": "object",
			"properties": {
				"id": {
					"type": "string"
				},
				"recipient_id": {
					"type": "string"
				},
				"recipient_role": {
					"type": "string"
				},
				"title": {
					"type": "string"
				},
				"message": {
					"type": "string"
				},
				"link": {
					"type": "string"
				},
				"read": {
					"type": "boolean"
				},
				"created_at": {
					"type": "string"
				}
			}
		}
	},
	"securityDefinitions": {
		"BearerAuth": {
			"description": "Type \"Bearer\" followed by a space and the session token.",
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
	Title:            "CIVIL360 API",
	Description:      "Construction management API: authentication, equipment, purchase orders and notifications.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
