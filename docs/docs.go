// Package docs registers the OpenAPI 2.0 description of the booking API with
// swag so gin-swagger can serve it at /swagger/doc.json. Regenerate with
// `swag init -g cmd/allodocteur/main.go -o docs` after changing handler
// annotations.
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
        "/auth/register": {
            "post": {
                "tags": ["Auth"],
                "summary": "Create a patient account",
                "operationId": "register",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.RegisterRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.RegisterResponse"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Email already registered", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange credentials for a bearer token",
                "operationId": "login",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.Session"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "429": {"description": "Too many attempts", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/doctors": {
            "get": {
                "tags": ["Doctors"],
                "summary": "Search the doctor directory",
                "operationId": "listDoctors",
                "parameters": [
                    {"type": "string", "name": "specialty", "in": "query"},
                    {"type": "string", "name": "city", "in": "query"},
                    {"type": "string", "name": "q", "in": "query"},
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "page_size", "in": "query"},
                    {"type": "string", "name": "If-None-Match", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListDoctorsResponse"}},
                    "304": {"description": "Not Modified"}
                }
            }
        },
        "/doctors/{id}": {
            "get": {
                "tags": ["Doctors"],
                "summary": "Get a doctor profile",
                "operationId": "getDoctor",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Doctor"}},
                    "404": {"description": "Doctor not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/appointments": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Appointments"],
                "summary": "Book an appointment",
                "operationId": "createAppointment",
                "parameters": [
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateAppointmentRequest"}}
                ],
                "responses": {
                    "200": {"description": "Idempotent replay", "schema": {"$ref": "#/definitions/handlers.CreateAppointmentResponse"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.CreateAppointmentResponse"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Doctor not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Slot taken", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "502": {"description": "Payment provider error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Payments not configured", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/appointments/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Appointments"],
                "summary": "List my appointments (paginated)",
                "operationId": "listMyAppointments",
                "parameters": [
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "page_size", "in": "query"},
                    {"type": "string", "name": "If-None-Match", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListAppointmentsResponse"}},
                    "304": {"description": "Not Modified"}
                }
            }
        },
        "/appointments/{id}/cancel": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "tags": ["Appointments"],
                "summary": "Cancel one of my appointments",
                "operationId": "cancelAppointment",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.CancelAppointmentResponse"}},
                    "403": {"description": "Not your appointment", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Appointment not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/appointments/confirm": {
            "get": {
                "tags": ["Appointments"],
                "summary": "Follow an emailed confirmation link",
                "operationId": "confirmAppointment",
                "parameters": [{"type": "string", "name": "token", "in": "query", "required": true}],
                "responses": {
                    "302": {"description": "Redirect to FRONTEND_URL/confirmed"},
                    "400": {"description": "Missing token", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Unknown token", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/payments/checkout-session": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Payments"],
                "summary": "Book and pay by card",
                "operationId": "createCheckoutSession",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CheckoutSessionRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.CheckoutSessionResponse"}},
                    "502": {"description": "Payment provider error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Payments not configured", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/payments/session/{sessionId}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Payments"],
                "summary": "Look up the booking behind a checkout session",
                "operationId": "getCheckoutSession",
                "parameters": [{"type": "string", "name": "sessionId", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.SessionLookupResponse"}},
                    "404": {"description": "Unknown session", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/hospital/stats": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Hospital"],
                "summary": "Dashboard counters",
                "operationId": "hospitalStats",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/repo.HospitalCounts"}}}
            }
        },
        "/hospital/appointments": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Hospital"],
                "summary": "Appointments across the hospital's doctors",
                "operationId": "hospitalAppointments",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Appointment"}}}}
            }
        },
        "/hospital/doctors": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Hospital"],
                "summary": "List the hospital's doctors",
                "operationId": "listOwnedDoctors",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Doctor"}}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Hospital"],
                "summary": "Add a doctor to the hospital roster",
                "operationId": "createDoctor",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.DoctorRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Doctor"}},
                    "400": {"description": "Invalid doctor", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/hospital/doctors/{id}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["Hospital"],
                "summary": "Replace a doctor's profile",
                "operationId": "updateDoctor",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.DoctorRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Doctor"}},
                    "404": {"description": "Doctor not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["Hospital"],
                "summary": "Remove a doctor from the directory",
                "operationId": "deleteDoctor",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.OKResponse"}},
                    "404": {"description": "Doctor not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "code": {"type": "string", "example": "not_found"},
                "message": {"type": "string", "example": "doctor not found"}
            }
        },
        "handlers.OKResponse": {"type": "object", "properties": {"ok": {"type": "boolean"}}},
        "handlers.Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"},
                "has_next": {"type": "boolean"}
            }
        },
        "handlers.RegisterRequest": {
            "type": "object",
            "required": ["email", "password", "fullName"],
            "properties": {"email": {"type": "string", "format": "email", "maxLength": 255}, "password": {"type": "string", "minLength": 6, "maxLength": 72}, "fullName": {"type": "string", "minLength": 2, "maxLength": 120}}
        },
        "handlers.RegisterResponse": {"type": "object", "properties": {"id": {"type": "string"}, "email": {"type": "string"}}},
        "handlers.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "services.Session": {
            "type": "object",
            "properties": {"token": {"type": "string"}, "role": {"type": "string"}, "fullName": {"type": "string"}, "email": {"type": "string"}}
        },
        "domain.DayAvailability": {
            "type": "object",
            "properties": {"dayLabel": {"type": "string"}, "dayNumber": {"type": "integer"}, "times": {"type": "array", "items": {"type": "string"}}}
        },
        "domain.Doctor": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "fullName": {"type": "string"},
                "specialty": {"type": "string"},
                "clinic": {"type": "string"},
                "city": {"type": "string"},
                "priceCfa": {"type": "integer"},
                "about": {"type": "array", "items": {"type": "string"}},
                "availability": {"type": "array", "items": {"$ref": "#/definitions/domain.DayAvailability"}},
                "hospitalUserId": {"type": "string"}
            }
        },
        "domain.Appointment": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "patientId": {"type": "string"},
                "doctorId": {"type": "string"},
                "dateTime": {"type": "string", "format": "date-time"},
                "status": {"type": "string", "enum": ["PENDING", "CONFIRMED", "CANCELLED"]},
                "paymentStatus": {"type": "string", "enum": ["PENDING", "PAID"]},
                "paymentMethod": {"type": "string"},
                "paymentRef": {"type": "string"},
                "amount": {"type": "integer"},
                "currency": {"type": "string"},
                "doctor": {"$ref": "#/definitions/domain.Doctor"}
            }
        },
        "handlers.DoctorRequest": {
            "type": "object",
            "properties": {
                "fullName": {"type": "string"},
                "specialty": {"type": "string"},
                "clinic": {"type": "string"},
                "city": {"type": "string"},
                "priceCfa": {"type": "integer"},
                "about": {"type": "array", "items": {"type": "string"}},
                "availability": {"type": "array", "items": {"$ref": "#/definitions/domain.DayAvailability"}}
            }
        },
        "handlers.ListDoctorsResponse": {
            "type": "object",
            "properties": {
                "doctors": {"type": "array", "items": {"$ref": "#/definitions/domain.Doctor"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        },
        "handlers.CreateAppointmentRequest": {
            "type": "object",
            "required": ["doctorId", "dateTime"],
            "properties": {"doctorId": {"type": "string"}, "dateTime": {"type": "string"}, "paymentRequired": {"type": "boolean"}}
        },
        "handlers.CreateAppointmentResponse": {
            "type": "object",
            "properties": {
                "ok": {"type": "boolean"},
                "status": {"type": "string"},
                "appointment": {"$ref": "#/definitions/domain.Appointment"},
                "checkoutUrl": {"type": "string"}
            }
        },
        "handlers.ListAppointmentsResponse": {
            "type": "object",
            "properties": {
                "appointments": {"type": "array", "items": {"$ref": "#/definitions/domain.Appointment"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        },
        "handlers.CancelAppointmentResponse": {
            "type": "object",
            "properties": {"ok": {"type": "boolean"}, "appointment": {"$ref": "#/definitions/domain.Appointment"}}
        },
        "handlers.CheckoutSessionRequest": {
            "type": "object",
            "required": ["doctorId", "dateTime"],
            "properties": {"doctorId": {"type": "string"}, "dateTime": {"type": "string"}}
        },
        "handlers.CheckoutSessionResponse": {
            "type": "object",
            "properties": {"ok": {"type": "boolean"}, "url": {"type": "string"}, "appointmentId": {"type": "string"}}
        },
        "handlers.SessionLookupResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "appointmentStatus": {"type": "string"},
                "paymentStatus": {"type": "string"},
                "paymentMethod": {"type": "string"},
                "paymentRef": {"type": "string"},
                "amountCfa": {"type": "integer"},
                "currency": {"type": "string"},
                "dateTime": {"type": "string", "format": "date-time"},
                "doctor": {"$ref": "#/definitions/domain.Doctor"}
            }
        },
        "repo.HospitalCounts": {
            "type": "object",
            "properties": {"doctorsCount": {"type": "integer"}, "appointmentsCount": {"type": "integer"}, "pendingCount": {"type": "integer"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "AlloDocteur booking API",
	Description:      "Doctor directory, appointment booking, email confirmation and card payment for AlloDocteur.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
