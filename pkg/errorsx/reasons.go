package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonIntentParse  ReasonCode = "intent_parse"
	ReasonToolMap      ReasonCode = "tool_map"
	ReasonArgSynthesis ReasonCode = "arg_synthesis"
	ReasonCallGenerate ReasonCode = "call_generate"

	ReasonInvalidCall     ReasonCode = "format_invalid_call"
	ReasonResultUnknownID ReasonCode = "result_unknown_id"
	ReasonResultMissing   ReasonCode = "result_missing"

	ReasonConfigLoad       ReasonCode = "config_load"
	ReasonUpstreamGenerate ReasonCode = "upstream_generate"
)
