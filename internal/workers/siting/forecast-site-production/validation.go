package forecastsiteproduction

const inputSchema = `{
  "type": "object",
  "properties": {
    "siteScore": {
      "type": "object",
      "required": ["latitude", "longitude", "recommendedCapacity", "factors"],
      "properties": {
        "latitude":            {"type": "number"},
        "longitude":           {"type": "number"},
        "recommendedCapacity": {"type": "number", "minimum": 0},
        "factors":             {"type": "object"}
      }
    },
    "latitude":  {"type": "number", "minimum": -90, "maximum": 90},
    "longitude": {"type": "number", "minimum": -180, "maximum": 180},
    "years":     {"type": "integer", "minimum": 1, "maximum": 30}
  },
  "anyOf": [
    {"required": ["siteScore"]},
    {"required": ["latitude", "longitude"]}
  ]
}`

func GetInputSchema() string {
	return inputSchema
}
