package httpapi

// OpenAPI builds the OpenAPI 3.0 document for the REST passthrough routes
func OpenAPI(version string) map[string]interface{} {
	patientIDParam := map[string]interface{}{
		"name":        "patientId",
		"in":          "path",
		"required":    true,
		"description": "Patient identifier",
		"schema":      map[string]interface{}{"type": "string"},
	}

	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":       "Clinical Intelligence MCP Server",
			"version":     version,
			"description": "REST passthrough for the clinical MCP tools. The MCP endpoint itself is served at /mcp.",
		},
		"paths": map[string]interface{}{
			"/api/patients/{patientId}/summary/db": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Summarize the latest discharge note from the local store",
					"operationId": "getSummaryFromDB",
					"tags":        []string{"summaries"},
					"parameters":  []interface{}{patientIDParam},
					"responses": map[string]interface{}{
						"200": jsonResponse("Summary or fallback message", "#/components/schemas/SummaryResult"),
						"500": jsonResponse("Unexpected failure", "#/components/schemas/Error"),
					},
				},
			},
			"/api/patients/{patientId}/summary/fhir": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Summarize the patient record from the FHIR server",
					"operationId": "getSummaryFromFHIR",
					"tags":        []string{"summaries"},
					"parameters":  []interface{}{patientIDParam},
					"responses": map[string]interface{}{
						"200": jsonResponse("Summary or fallback message", "#/components/schemas/SummaryResult"),
						"500": jsonResponse("Unexpected failure", "#/components/schemas/Error"),
					},
				},
			},
			"/api/guidelines": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Search clinical guidelines by topic",
					"operationId": "searchGuidelines",
					"tags":        []string{"guidelines"},
					"parameters": []interface{}{
						map[string]interface{}{
							"name":        "topic",
							"in":          "query",
							"required":    true,
							"description": "Case-insensitive topic keyword",
							"schema":      map[string]interface{}{"type": "string"},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Matching guidelines, or an error object when none match",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"oneOf": []interface{}{
											map[string]interface{}{
												"type":  "array",
												"items": map[string]interface{}{"$ref": "#/components/schemas/Guideline"},
											},
											map[string]interface{}{"$ref": "#/components/schemas/Error"},
										},
									},
								},
							},
						},
					},
				},
			},
		},
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"SummaryResult": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"source":      map[string]interface{}{"type": "string", "enum": []string{"local store", "remote API"}},
						"patientId":   map[string]interface{}{"type": "string"},
						"patientName": map[string]interface{}{"type": "string"},
						"ai_summary":  map[string]interface{}{"type": "string"},
						"summary":     map[string]interface{}{"type": "string", "description": "Fallback message when no summary could be produced"},
					},
				},
				"Guideline": map[string]interface{}{
					"type":     "object",
					"required": []string{"guidelineId", "topic", "title"},
					"properties": map[string]interface{}{
						"guidelineId": map[string]interface{}{"type": "string"},
						"topic":       map[string]interface{}{"type": "string"},
						"title":       map[string]interface{}{"type": "string"},
						"source":      map[string]interface{}{"type": "string"},
						"url":         map[string]interface{}{"type": "string"},
					},
				},
				"Error": map[string]interface{}{
					"type":     "object",
					"required": []string{"error"},
					"properties": map[string]interface{}{
						"error": map[string]interface{}{"type": "string"},
					},
				},
			},
		},
	}
}

func jsonResponse(description, ref string) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": map[string]interface{}{"$ref": ref},
			},
		},
	}
}
