package dto

// PreviewEventRequest 浏览器上报的预览生命周期事件。
// kind 取值：loaded / console / error / rejection。
type PreviewEventRequest struct {
	Kind      string `json:"kind" binding:"required"`
	Message   string `json:"message"`
	SourceURL string `json:"source_url"`
}

// RetryResponse 手动重试响应
type RetryResponse struct {
	Allowed    bool   `json:"allowed"`
	RetryCount int    `json:"retry_count"`
	MaxRetries int    `json:"max_retries"`
	RetryURL   string `json:"retry_url,omitempty"`
}
