package ai

// System prompts shared by every provider. Each asks for bare JSON so DecodeJSON can
// read the reply; models still wrap it in fences often enough that the parser strips them.
const (
	SystemExtract = "You turn traveller requests into structured trip data. " +
		"Reply with a single JSON object and nothing else."

	SystemEnhance = "You are a travel expert who writes detailed, cost-aware day-by-day itineraries. " +
		"Reply with a single JSON object and nothing else."

	SystemPlanWithData = "You are a travel planner working from live flight, hotel and activity listings. " +
		"Keep recommendations inside the stated budget. Reply with a single JSON object and nothing else."
)

// Sampling presets. Extraction wants determinism; itineraries benefit from variety.
const (
	TemperatureExtract  float32 = 0.1
	TemperatureCreative float32 = 0.7

	MaxTokensExtract      = 1000
	MaxTokensEnhance      = 2000
	MaxTokensPlanWithData = 3000
)
