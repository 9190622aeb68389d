package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "School Fees API",
        "description": "Fee ledger, payment reconciliation and promotion service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Students", "description": "Student admission and upkeep"},
        {"name": "Fees", "description": "Fee ledger and payment recording"},
        {"name": "Promotions", "description": "Class transitions and archives"},
        {"name": "Reports", "description": "Office exports"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "class", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Admit student",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateStudentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get student with fee structure",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Students"],
                "summary": "Update student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateStudentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Students"],
                "summary": "Deactivate student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/students/{id}/fees": {
            "get": {
                "tags": ["Fees"],
                "summary": "Fee structure and payment history",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/fees/payments": {
            "post": {
                "tags": ["Fees"],
                "summary": "Record a manual fee payment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AdminPaymentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation or ledger rejection", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Concurrent modification", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/fees/pay": {
            "post": {
                "tags": ["Fees"],
                "summary": "Record a student-initiated payment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SelfPaymentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/fees/verify": {
            "post": {
                "tags": ["Fees"],
                "summary": "Verify and record a gateway payment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GatewayPaymentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Signature mismatch", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/fees/payments/{paymentId}/receipt": {
            "get": {
                "tags": ["Fees"],
                "summary": "Download a payment receipt",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "paymentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF receipt"}
                }
            }
        },
        "/students/{id}/promote": {
            "post": {
                "tags": ["Promotions"],
                "summary": "Promote a student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PromoteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/promotions": {
            "get": {
                "tags": ["Promotions"],
                "summary": "Promotion history",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/outstanding-fees": {
            "get": {
                "tags": ["Reports"],
                "summary": "Export outstanding fee balances as CSV",
                "produces": ["text/csv"],
                "responses": {
                    "200": {"description": "CSV export"}
                }
            }
        },
        "/receipts/download": {
            "get": {
                "tags": ["Fees"],
                "summary": "Download an archived receipt via signed link",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF receipt"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        },
        "/promotions": {
            "post": {
                "tags": ["Promotions"],
                "summary": "Promote a batch of students",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BatchPromoteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Student": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "admission_no": {"type": "string"},
                "full_name": {"type": "string"},
                "class_name": {"type": "string"},
                "gender": {"type": "string"},
                "guardian_name": {"type": "string"},
                "guardian_email": {"type": "string"},
                "phone": {"type": "string"},
                "transport_opted": {"type": "boolean"},
                "active": {"type": "boolean"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "FeeStructure": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "tuition_first_term": {"type": "integer"},
                "tuition_second_term": {"type": "integer"},
                "transport": {"type": "integer"},
                "kit": {"type": "integer"},
                "total": {"type": "integer"},
                "paid": {"type": "integer"},
                "balance": {"type": "integer"},
                "paid_components": {"type": "object", "additionalProperties": {"type": "integer"}},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "FeePayment": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "student_id": {"type": "string"},
                "amount": {"type": "integer"},
                "mode": {"type": "string"},
                "transaction_id": {"type": "string"},
                "payment_method": {"type": "string"},
                "term": {"type": "string"},
                "paid_for": {"type": "object"},
                "breakdown": {"type": "object"},
                "date": {"type": "string"}
            }
        },
        "CreateStudentRequest": {
            "type": "object",
            "properties": {
                "admission_no": {"type": "string"},
                "full_name": {"type": "string"},
                "class_name": {"type": "string"},
                "gender": {"type": "string"},
                "guardian_name": {"type": "string"},
                "guardian_email": {"type": "string"},
                "phone": {"type": "string"},
                "transport_opted": {"type": "boolean"},
                "fee_overrides": {"$ref": "#/definitions/ScheduleOverrides"}
            },
            "required": ["admission_no", "full_name", "class_name"]
        },
        "UpdateStudentRequest": {
            "type": "object",
            "properties": {
                "full_name": {"type": "string"},
                "gender": {"type": "string"},
                "guardian_name": {"type": "string"},
                "guardian_email": {"type": "string"},
                "phone": {"type": "string"}
            },
            "required": ["full_name"]
        },
        "ScheduleOverrides": {
            "type": "object",
            "properties": {
                "tuition": {"type": "integer"},
                "transport": {"type": "integer"},
                "kit": {"type": "integer"}
            }
        },
        "AdminPaymentRequest": {
            "type": "object",
            "properties": {
                "breakdown": {"type": "object", "additionalProperties": {"type": "integer"}},
                "mode": {"type": "string", "enum": ["cash", "upi"]},
                "payment_method": {"type": "string"},
                "transaction_id": {"type": "string"}
            },
            "required": ["breakdown", "mode"]
        },
        "SelfPaymentRequest": {
            "type": "object",
            "properties": {
                "breakdown": {"type": "object", "additionalProperties": {"type": "integer"}},
                "mode": {"type": "string"},
                "payment_method": {"type": "string"},
                "transaction_id": {"type": "string"}
            },
            "required": ["breakdown", "mode"]
        },
        "GatewayPaymentRequest": {
            "type": "object",
            "properties": {
                "order_id": {"type": "string"},
                "payment_id": {"type": "string"},
                "signature": {"type": "string"},
                "breakdown": {"type": "object", "additionalProperties": {"type": "integer"}},
                "payment_method": {"type": "string"}
            },
            "required": ["order_id", "payment_id", "signature", "breakdown"]
        },
        "PromoteRequest": {
            "type": "object",
            "properties": {
                "to_class": {"type": "string"},
                "fee_overrides": {"$ref": "#/definitions/ScheduleOverrides"}
            },
            "required": ["to_class"]
        },
        "BatchPromoteRequest": {
            "type": "object",
            "properties": {
                "student_ids": {"type": "array", "items": {"type": "string"}},
                "to_class": {"type": "string"},
                "fee_overrides": {"$ref": "#/definitions/ScheduleOverrides"}
            },
            "required": ["student_ids", "to_class"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
