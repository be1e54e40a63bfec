package streamer

// Message type tags pushed over the live status channel.
const (
	MessageTypeStatus    = "status"
	MessageTypePodStatus = "podStatus"
	MessageTypeLogs      = "logs"
	MessageTypeError     = "error"
)

type StatusMessage struct {
	Type              string      `json:"type"`
	Replicas          int32       `json:"replicas"`
	ReadyReplicas     int32       `json:"readyReplicas"`
	AvailableReplicas int32       `json:"availableReplicas"`
	Conditions        []Condition `json:"conditions"`
}

type Condition struct {
	ConditionType string `json:"conditionType"`
	Status        string `json:"status"`
	Reason        string `json:"reason,omitempty"`
	Message       string `json:"message,omitempty"`
}

type PodStatusMessage struct {
	Type string    `json:"type"`
	Pods []PodInfo `json:"pods"`
}

type PodInfo struct {
	Name     string `json:"name"`
	Phase    string `json:"phase"`
	Ready    bool   `json:"ready"`
	Restarts int32  `json:"restarts"`
	Node     string `json:"node,omitempty"`
}

// LogsMessage is reserved for client-driven log streaming; no server
// path emits it yet.
type LogsMessage struct {
	Type    string `json:"type"`
	PodName string `json:"podName"`
	Logs    string `json:"logs"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
