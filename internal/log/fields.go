package log

// Canonical field names for structured logging.
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldRunID     = "run_id"
	FieldStage     = "stage"
	FieldSource    = "source_url"
	FieldArtifact  = "artifact"
	FieldLanguage  = "lang"
	FieldSection   = "section"
	FieldPath      = "path"
	FieldTool      = "tool"
)
