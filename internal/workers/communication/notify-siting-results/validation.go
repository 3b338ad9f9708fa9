package notifysitingresults

const inputSchema = `{
  "type": "object",
  "required": ["runId", "recommendations"],
  "properties": {
    "runId": {"type": "string", "minLength": 1},
    "recommendations": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["rank", "latitude", "longitude", "totalScore"],
        "properties": {
          "rank":       {"type": "integer", "minimum": 1},
          "latitude":   {"type": "number"},
          "longitude":  {"type": "number"},
          "totalScore": {"type": "number"}
        }
      }
    },
    "recipients": {
      "type": "array",
      "items": {"type": "string"}
    }
  }
}`

func GetInputSchema() string {
	return inputSchema
}
