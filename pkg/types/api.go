package types

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: model not found: phi4
	Error string `json:"error" example:"model not found: phi4"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}

// VersionResponse is returned by GET /api/version.
type VersionResponse struct {
	// example: 0.5.4
	Version string `json:"version" example:"0.5.4"`
}

// ModelDetails describes the weights behind a listed model.
type ModelDetails struct {
	// example: gguf
	Format string `json:"format" example:"gguf"`
	// example: phi3
	Family string `json:"family" example:"phi3"`
	// example: ["phi3"]
	Families []string `json:"families"`
	// example: 14.7B
	ParameterSize string `json:"parameter_size" example:"14.7B"`
	// example: Q4_K_M
	QuantizationLevel string `json:"quantization_level" example:"Q4_K_M"`
}

// ModelTag is one entry of GET /api/tags.
type ModelTag struct {
	// example: phi4:latest
	Name string `json:"name" example:"phi4:latest"`
	// example: phi4:latest
	Model string `json:"model" example:"phi4:latest"`
	// Manifest modification time, RFC 3339.
	// example: 2025-01-10T12:00:00Z
	ModifiedAt string `json:"modified_at" example:"2025-01-10T12:00:00Z"`
	// Blob size in bytes.
	// example: 9053114901
	Size int64 `json:"size" example:"9053114901"`
	// Hex digest of the weights blob.
	Digest  string       `json:"digest"`
	Details ModelDetails `json:"details"`
}

// TagsResponse is returned by GET /api/tags.
type TagsResponse struct {
	Models []ModelTag `json:"models"`
}

// OpenAIModel is one entry of GET /v1/models.
type OpenAIModel struct {
	// example: phi4:latest
	ID string `json:"id" example:"phi4:latest"`
	// example: model
	Object string `json:"object" example:"model"`
	// Unix seconds.
	Created int64 `json:"created"`
	// example: ollama
	OwnedBy string `json:"owned_by" example:"ollama"`
}

// OpenAIModelList is returned by GET /v1/models.
type OpenAIModelList struct {
	// example: list
	Object string        `json:"object" example:"list"`
	Data   []OpenAIModel `json:"data"`
}

// BackendStatus describes the supervised llama-server process.
type BackendStatus struct {
	// Lifecycle state: idle, starting, ready or stopping.
	// example: ready
	State string `json:"state" example:"ready"`
	// Weights file the process was started with.
	ModelPath string `json:"model_path,omitempty"`
	// example: http://127.0.0.1:8081
	URL string `json:"url,omitempty" example:"http://127.0.0.1:8081"`
	// example: 12345
	PID int `json:"pid,omitempty" example:"12345"`
	// Process start time in unix seconds.
	StartedUnix int64 `json:"started_unix,omitempty"`
	// Whether the process was launched with --split-mode layer.
	SplitMode bool `json:"split_mode"`
	// Last start failure, if any.
	LastError string `json:"last_error,omitempty"`
	// Total spawn attempts.
	// example: 3
	StartsTotal uint64 `json:"starts_total" example:"3"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Backend BackendStatus `json:"backend"`
	// Resolvable registry keys, aliases included.
	// example: 6
	RegistryKeys int `json:"registry_keys" example:"6"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
