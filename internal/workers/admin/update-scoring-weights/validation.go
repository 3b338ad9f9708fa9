package updatescoringweights

const inputSchema = `{
  "type": "object",
  "required": ["weights"],
  "properties": {
    "weights": {
      "type": "object",
      "required": ["renewable", "demand", "cost", "regulatory"],
      "properties": {
        "renewable":  {"type": "number", "minimum": 0, "maximum": 1},
        "demand":     {"type": "number", "minimum": 0, "maximum": 1},
        "cost":       {"type": "number", "minimum": 0, "maximum": 1},
        "regulatory": {"type": "number", "minimum": 0, "maximum": 1}
      }
    },
    "thresholds": {
      "type": "object",
      "required": ["excellentDistance", "goodDistance", "fairDistance", "maxDistance"],
      "properties": {
        "excellentDistance": {"type": "number", "exclusiveMinimum": 0},
        "goodDistance":      {"type": "number", "exclusiveMinimum": 0},
        "fairDistance":      {"type": "number", "exclusiveMinimum": 0},
        "maxDistance":       {"type": "number", "exclusiveMinimum": 0}
      }
    },
    "updatedBy": {"type": "string", "maxLength": 200}
  }
}`

func GetInputSchema() string {
	return inputSchema
}
