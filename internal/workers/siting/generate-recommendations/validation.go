package generaterecommendations

// Job variables carry the whole process scope, so extra properties are allowed.
const inputSchema = `{
  "type": "object",
  "required": ["boundingBox"],
  "properties": {
    "boundingBox": {
      "type": "object",
      "required": ["north", "south", "east", "west"],
      "properties": {
        "north": {"type": "number", "minimum": -90, "maximum": 90},
        "south": {"type": "number", "minimum": -90, "maximum": 90},
        "east":  {"type": "number", "minimum": -180, "maximum": 180},
        "west":  {"type": "number", "minimum": -180, "maximum": 180}
      }
    },
    "maxRecommendations": {"type": "integer", "minimum": 1, "maximum": 100},
    "minScore": {"type": "number", "minimum": 0, "maximum": 100},
    "gridResolution": {"type": "number", "exclusiveMinimum": 0},
    "weights": {
      "type": "object",
      "required": ["renewable", "demand", "cost", "regulatory"],
      "properties": {
        "renewable":  {"type": "number", "minimum": 0, "maximum": 1},
        "demand":     {"type": "number", "minimum": 0, "maximum": 1},
        "cost":       {"type": "number", "minimum": 0, "maximum": 1},
        "regulatory": {"type": "number", "minimum": 0, "maximum": 1}
      }
    }
  }
}`

func GetInputSchema() string {
	return inputSchema
}
