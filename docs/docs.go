// Package docs registers the OpenAPI document for the HTTP API with swag.
// Keep it in step with the handler annotations in internal/transport/http/gin
// (`swag init -g cmd/seatd/main.go` rewrites it from them).
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
        "/healthz": {
            "get": {
                "summary": "Liveness probe",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/contracts": {
            "post": {
                "summary": "Instantiate contract (idempotent)",
                "parameters": [
                    {
                        "description": "payload",
                        "name": "req",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/httpgin.InstantiateRequest"
                        }
                    },
                    {
                        "type": "string",
                        "description": "replays the stored response for the same sender and body",
                        "name": "Idempotency-Key",
                        "in": "header"
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/contracts.Result"
                        },
                        "headers": {
                            "Idempotency-Key": {
                                "type": "string",
                                "description": "echo"
                            }
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/httpgin.ErrorResponse"
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/httpgin.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "idem in progress",
                        "schema": {
                            "$ref": "#/definitions/httpgin.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/contracts/{addr}": {
            "get": {
                "summary": "Get contract",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Contract address",
                        "name": "addr",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/httpgin.ContractResponse"
                        }
                    },
                    "304": {
                        "description": "Not Modified"
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/httpgin.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/contracts/{addr}/execute": {
            "post": {
                "summary": "Execute message (idempotent)",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Contract address",
                        "name": "addr",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "payload",
                        "name": "req",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/httpgin.ExecuteRequest"
                        }
                    },
                    {
                        "type": "string",
                        "description": "replays the stored response for the same sender and body",
                        "name": "Idempotency-Key",
                        "in": "header"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/contracts.Result"
                        },
                        "headers": {
                            "Idempotency-Key": {
                                "type": "string",
                                "description": "echo"
                            }
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/httpgin.ErrorResponse"
                        }
                    },
                    "402": {
                        "description": "insufficient funds",
                        "schema": {
                            "$ref": "#/definitions/httpgin.ErrorResponse"
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/httpgin.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/httpgin.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "invalid state / idem in progress",
                        "schema": {
                            "$ref": "#/definitions/httpgin.ErrorResponse"
                        }
                    },
                    "429": {
                        "description": "rate limited",
                        "schema": {
                            "$ref": "#/definitions/httpgin.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/contracts/{addr}/query": {
            "post": {
                "summary": "Query contract",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Contract address",
                        "name": "addr",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "payload",
                        "name": "req",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/httpgin.QueryRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "query result",
                        "schema": {
                            "type": "object"
                        }
                    },
                    "304": {
                        "description": "Not Modified"
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/httpgin.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/httpgin.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/contracts/{addr}/migrate": {
            "post": {
                "summary": "Migrate contract",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Contract address",
                        "name": "addr",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "payload",
                        "name": "req",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/httpgin.MigrateRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/contracts.Result"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/httpgin.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "stored version is not older",
                        "schema": {
                            "$ref": "#/definitions/httpgin.ErrorResponse"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "contracts.Result": {
            "type": "object",
            "properties": {
                "contract": {
                    "type": "string"
                },
                "height": {
                    "type": "integer"
                },
                "response": {
                    "type": "object"
                }
            }
        },
        "domain.Coin": {
            "type": "object",
            "properties": {
                "amount": {
                    "type": "string"
                },
                "denom": {
                    "type": "string"
                }
            }
        },
        "httpgin.ContractResponse": {
            "type": "object",
            "properties": {
                "address": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                },
                "creator": {
                    "type": "string"
                },
                "height": {
                    "type": "integer"
                },
                "kind": {
                    "type": "string"
                },
                "updated_at": {
                    "type": "string"
                }
            }
        },
        "httpgin.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "string"
                },
                "kind": {
                    "type": "string"
                },
                "module": {
                    "type": "string"
                }
            }
        },
        "httpgin.ExecuteRequest": {
            "type": "object",
            "required": [
                "msg",
                "sender"
            ],
            "properties": {
                "funds": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/domain.Coin"
                    }
                },
                "msg": {
                    "type": "object"
                },
                "sender": {
                    "type": "string"
                }
            }
        },
        "httpgin.InstantiateRequest": {
            "type": "object",
            "required": [
                "kind",
                "msg",
                "sender"
            ],
            "properties": {
                "funds": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/domain.Coin"
                    }
                },
                "kind": {
                    "type": "string",
                    "enum": [
                        "seat",
                        "hub"
                    ]
                },
                "msg": {
                    "type": "object"
                },
                "sender": {
                    "type": "string"
                }
            }
        },
        "httpgin.MigrateRequest": {
            "type": "object",
            "required": [
                "msg"
            ],
            "properties": {
                "msg": {
                    "type": "object"
                }
            }
        },
        "httpgin.QueryRequest": {
            "type": "object",
            "required": [
                "msg"
            ],
            "properties": {
                "msg": {
                    "type": "object"
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Seat Market API",
	Description:      "Seat and hub contracts: instantiate, execute, query and migrate.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
