package comparesites

// minItems is left to the handler so too few sites maps to INSUFFICIENT_SITES.
const inputSchema = `{
  "type": "object",
  "required": ["sites"],
  "properties": {
    "sites": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["latitude", "longitude"],
        "properties": {
          "name":      {"type": "string"},
          "latitude":  {"type": "number"},
          "longitude": {"type": "number"}
        }
      }
    },
    "weights": {
      "type": "object",
      "required": ["renewable", "demand", "cost", "regulatory"],
      "properties": {
        "renewable":  {"type": "number", "minimum": 0},
        "demand":     {"type": "number", "minimum": 0},
        "cost":       {"type": "number", "minimum": 0},
        "regulatory": {"type": "number", "minimum": 0}
      }
    }
  }
}`

func GetInputSchema() string {
	return inputSchema
}
