package dispatch

import (
	"encoding/json"
	"strings"
)

// Result is a backend response passed through to the client.
type Result struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// JSON decodes the body as an object. ok is false for non-object bodies.
func (r Result) JSON() (map[string]interface{}, bool) {
	var payload map[string]interface{}
	if err := json.Unmarshal(r.Body, &payload); err != nil || payload == nil {
		return nil, false
	}
	return payload, true
}

// TaskID is set when the backend accepted the request for asynchronous processing.
func TaskID(payload map[string]interface{}) string {
	id, _ := payload["task_id"].(string)
	return strings.TrimSpace(id)
}

// ImageData is set when the payload carries a finished image.
func ImageData(payload map[string]interface{}) string {
	data, _ := payload["image_data"].(string)
	return data
}

const (
	TaskPending    = "PENDING"
	TaskProcessing = "PROCESSING"
	TaskCompleted  = "COMPLETED"
	TaskFailed     = "FAILED"
	TaskCancelled  = "CANCELLED"
)

// TaskStatus is the backend's polling contract for asynchronous tasks.
type TaskStatus struct {
	ID       string                 `json:"id"`
	Status   string                 `json:"status"`
	Progress float64                `json:"progress"`
	Message  string                 `json:"message"`
	Result   map[string]interface{} `json:"result"`
	Error    string                 `json:"error"`
}

func (s TaskStatus) IsTerminal() bool {
	switch strings.ToUpper(s.Status) {
	case TaskCompleted, TaskFailed, TaskCancelled:
		return true
	}
	return false
}

func (s TaskStatus) IsCompleted() bool {
	return strings.ToUpper(s.Status) == TaskCompleted
}

// ResultImage is the image payload of a completed task, empty otherwise.
func (s TaskStatus) ResultImage() string {
	if !s.IsCompleted() || s.Result == nil {
		return ""
	}
	return ImageData(s.Result)
}

// ParseTaskStatus recognises a task status body. ok is false when the body
// carries no status field.
func ParseTaskStatus(body []byte) (TaskStatus, bool) {
	var status TaskStatus
	if err := json.Unmarshal(body, &status); err != nil || status.Status == "" {
		return TaskStatus{}, false
	}
	return status, true
}
