// Package docs registers the OpenAPI description served at /swagger.
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
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}}
            }
        },
        "/ws": {
            "get": {
                "description": "Sends a status snapshot on connect and every interval, plus each controller event as it happens",
                "tags": ["system"],
                "summary": "Live status stream",
                "parameters": [
                    {"type": "string", "description": "Status period, e.g. 2s (max 10s)", "name": "interval", "in": "query"},
                    {"type": "integer", "description": "Status period in milliseconds (max 10000)", "name": "interval_ms", "in": "query"}
                ],
                "responses": {}
            }
        },
        "/api/v1/icemaker/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["icemaker"],
                "summary": "Get controller status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Snapshot"}}}
            }
        },
        "/api/v1/icemaker/start": {
            "post": {
                "produces": ["application/json"],
                "tags": ["icemaker"],
                "summary": "Start icemaker",
                "responses": {"200": {"description": "status, state"}, "409": {"description": "Conflict"}, "500": {"description": "Internal Server Error"}}
            }
        },
        "/api/v1/icemaker/stop": {
            "post": {
                "produces": ["application/json"],
                "tags": ["icemaker"],
                "summary": "Stop icemaker",
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}, "500": {"description": "Internal Server Error"}}
            }
        },
        "/api/v1/icemaker/emergency-stop": {
            "post": {
                "produces": ["application/json"],
                "tags": ["icemaker"],
                "summary": "Emergency stop",
                "responses": {"200": {"description": "OK"}, "500": {"description": "Internal Server Error"}}
            }
        },
        "/api/v1/icemaker/shutdown": {
            "post": {
                "produces": ["application/json"],
                "tags": ["icemaker"],
                "summary": "Request shutdown",
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}, "500": {"description": "Internal Server Error"}}
            }
        },
        "/api/v1/icemaker/diagnostic/enter": {
            "post": {
                "produces": ["application/json"],
                "tags": ["icemaker"],
                "summary": "Enter diagnostic mode",
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}
            }
        },
        "/api/v1/icemaker/diagnostic/exit": {
            "post": {
                "produces": ["application/json"],
                "tags": ["icemaker"],
                "summary": "Exit diagnostic mode",
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}
            }
        },
        "/api/v1/relays": {
            "get": {
                "produces": ["application/json"],
                "tags": ["relays"],
                "summary": "Get relay states",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.RelayBank"}}}
            }
        },
        "/api/v1/relays/{name}": {
            "put": {
                "description": "Only accepted in DIAGNOSTIC. Heat plus cool is refused and forces ERROR.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["relays"],
                "summary": "Set one relay",
                "parameters": [
                    {
                        "enum": ["water_valve", "hot_gas_solenoid", "recirculating_pump", "compressor_1", "compressor_2", "condenser_fan", "led", "ice_cutter"],
                        "type": "string", "description": "Relay name", "name": "name", "in": "path", "required": true
                    },
                    {"description": "Relay payload", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.SetRelayRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}, "409": {"description": "Conflict"}}
            }
        },
        "/api/v1/sensors": {
            "get": {
                "produces": ["application/json"],
                "tags": ["sensors"],
                "summary": "Latest sensor reading",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.SensorReading"}}, "503": {"description": "Service Unavailable"}}
            }
        },
        "/api/v1/config": {
            "get": {
                "produces": ["application/json"],
                "tags": ["config"],
                "summary": "Get cycle configuration",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.CycleConfig"}}}
            },
            "patch": {
                "description": "Accepts dotted keys or nested objects. All fields are validated before any is applied.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["config"],
                "summary": "Update cycle configuration",
                "parameters": [{"description": "Fields to change", "name": "body", "in": "body", "required": true, "schema": {"type": "object", "additionalProperties": true}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.CycleConfig"}}, "400": {"description": "Bad Request"}, "422": {"description": "error, fields"}}
            }
        },
        "/api/v1/config/reset": {
            "post": {
                "produces": ["application/json"],
                "tags": ["config"],
                "summary": "Reset configuration to factory defaults",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.CycleConfig"}}}
            }
        },
        "/api/v1/config/schema": {
            "get": {
                "produces": ["application/json"],
                "tags": ["config"],
                "summary": "Configuration schema",
                "responses": {"200": {"description": "count, fields"}}
            }
        },
        "/api/v1/simulator": {
            "get": {
                "produces": ["application/json"],
                "tags": ["simulator"],
                "summary": "Simulator status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/service.SimulationStatus"}}}
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["simulator"],
                "summary": "Set simulator speed",
                "parameters": [{"description": "Speed payload", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.SimulatorSpeedRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/service.SimulationStatus"}}, "400": {"description": "Bad Request"}, "503": {"description": "Service Unavailable"}}
            }
        },
        "/api/v1/simulator/reset": {
            "post": {
                "produces": ["application/json"],
                "tags": ["simulator"],
                "summary": "Reset the thermal model",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/service.SimulationStatus"}}, "503": {"description": "Service Unavailable"}}
            }
        },
        "/api/v1/logs": {
            "get": {
                "description": "Filter journal entries by date (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). A date-only 'to' is the end of that day.",
                "produces": ["application/json"],
                "tags": ["logs"],
                "summary": "List logs",
                "parameters": [
                    {"type": "string", "example": "2025-08-01", "description": "Start of range", "name": "from", "in": "query"},
                    {"type": "string", "example": "2025-08-31", "description": "End of range", "name": "to", "in": "query"},
                    {"enum": ["STATE_CHANGE", "FAULT", "COMMAND", "CONFIG"], "type": "string", "description": "Event type", "name": "type", "in": "query"},
                    {"type": "integer", "description": "Newest N entries (default 500, max 5000)", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "count, events"}, "400": {"description": "Bad Request"}, "500": {"description": "Internal Server Error"}}
            }
        }
    },
    "definitions": {
        "handlers.SetRelayRequest": {
            "type": "object",
            "required": ["on"],
            "properties": {"on": {"type": "boolean", "example": true}}
        },
        "handlers.SimulatorSpeedRequest": {
            "type": "object",
            "required": ["speed_multiplier"],
            "properties": {"speed_multiplier": {"type": "number", "example": 60}}
        },
        "models.RelayBank": {
            "type": "object",
            "properties": {
                "water_valve": {"type": "boolean"},
                "hot_gas_solenoid": {"type": "boolean"},
                "recirculating_pump": {"type": "boolean"},
                "compressor_1": {"type": "boolean"},
                "compressor_2": {"type": "boolean"},
                "condenser_fan": {"type": "boolean"},
                "led": {"type": "boolean"},
                "ice_cutter": {"type": "boolean"}
            }
        },
        "models.SensorReading": {
            "type": "object",
            "properties": {
                "plate_temp_f": {"type": "number"},
                "bin_temp_f": {"type": "number"},
                "water_temp_f": {"type": "number"},
                "taken_at": {"type": "string"},
                "simulated_seconds": {"type": "number"}
            }
        },
        "models.Status": {
            "type": "object",
            "properties": {
                "state": {"type": "string", "example": "CHILL:PRECHILL"},
                "previous_state": {"type": "string"},
                "state_entered_at": {"type": "string"},
                "time_in_state_s": {"type": "number"},
                "cycle_count": {"type": "integer"},
                "session_cycle_count": {"type": "integer"},
                "target_temp_f": {"type": "number"},
                "shutdown_requested": {"type": "boolean"},
                "last_fault": {"type": "string"}
            }
        },
        "models.Snapshot": {
            "type": "object",
            "properties": {
                "status": {"$ref": "#/definitions/models.Status"},
                "relays": {"$ref": "#/definitions/models.RelayBank"},
                "reading": {"$ref": "#/definitions/models.SensorReading"}
            }
        },
        "models.PhaseConfig": {
            "type": "object",
            "properties": {"target_temp_f": {"type": "number"}, "timeout_s": {"type": "integer"}}
        },
        "models.PrimingConfig": {
            "type": "object",
            "properties": {
                "enabled": {"type": "boolean"},
                "flush_s": {"type": "integer"},
                "pump_s": {"type": "integer"},
                "fill_s": {"type": "integer"}
            }
        },
        "models.CycleConfig": {
            "type": "object",
            "properties": {
                "prechill": {"$ref": "#/definitions/models.PhaseConfig"},
                "ice": {"$ref": "#/definitions/models.PhaseConfig"},
                "harvest": {"$ref": "#/definitions/models.PhaseConfig"},
                "rechill": {"$ref": "#/definitions/models.PhaseConfig"},
                "harvest_fill_s": {"type": "integer"},
                "bin_full_threshold_f": {"type": "number"},
                "standby_timeout_s": {"type": "integer"},
                "power_on_timeout_s": {"type": "integer"},
                "priming": {"$ref": "#/definitions/models.PrimingConfig"},
                "poll_interval_s": {"type": "number"},
                "simulator_enabled": {"type": "boolean"}
            }
        },
        "service.SimulationStatus": {
            "type": "object",
            "properties": {
                "enabled": {"type": "boolean"},
                "speed_multiplier": {"type": "number"},
                "model": {"type": "object"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Icemaker Controller API",
	Description:      "Operator API of the ice-maker controller: cycle commands, diagnostics, configuration, simulator and journal.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
