package analyzesite

const inputSchema = `{
  "type": "object",
  "required": ["latitude", "longitude"],
  "properties": {
    "latitude":  {"type": "number", "minimum": -90, "maximum": 90},
    "longitude": {"type": "number", "minimum": -180, "maximum": 180},
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
