package api

// queue statuses
const (
	StatusInQueue    = "IN_QUEUE"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

// apps
const (
	AppLipSync     = "fal-ai/sync-lipsync"
	AppTextToVideo = "fal-ai/minimax/video-01-live"
)

// SubmitData is the response of queue submit
type SubmitData struct {
	RequestID   string `json:"request_id"`
	ResponseURL string `json:"response_url"`
	StatusURL   string `json:"status_url"`
	CancelURL   string `json:"cancel_url"`
}

// LogData is one log line of a queued request
type LogData struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
}

// StatusData keeps structure for status method
type StatusData struct {
	Status        string    `json:"status"`
	QueuePosition int       `json:"queue_position,omitempty"`
	ResponseURL   string    `json:"response_url,omitempty"`
	Logs          []LogData `json:"logs,omitempty"`
}

// LipSyncInput is the argument of the lip sync app
type LipSyncInput struct {
	VideoURL               string  `json:"video_url"`
	AudioURL               string  `json:"audio_url"`
	FaceDetectionThreshold float64 `json:"face_detection_threshold,omitempty"`
	OutputFormat           string  `json:"output_format,omitempty"`
}

// TextToVideoInput is the argument of the text to video app
type TextToVideoInput struct {
	Prompt            string  `json:"prompt"`
	NegativePrompt    string  `json:"negative_prompt,omitempty"`
	NumFrames         int     `json:"num_frames,omitempty"`
	FPS               int     `json:"fps,omitempty"`
	Width             int     `json:"width,omitempty"`
	Height            int     `json:"height,omitempty"`
	GuidanceScale     float64 `json:"guidance_scale,omitempty"`
	NumInferenceSteps int     `json:"num_inference_steps,omitempty"`
	PromptOptimizer   bool    `json:"prompt_optimizer,omitempty"`
}

// FileData is a generated file reference
type FileData struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
	FileName    string `json:"file_name,omitempty"`
	FileSize    int64  `json:"file_size,omitempty"`
}

// VideoResult is the response of video producing apps
type VideoResult struct {
	Video FileData `json:"video"`
}
