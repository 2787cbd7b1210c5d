package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Payload is written to the file named by TRUDGER_NOTIFY_PAYLOAD_PATH and
// published on the notification bus.
type Payload struct {
	Event           Event  `json:"event"`
	DurationMS      int64  `json:"duration_ms"`
	Folder          string `json:"folder"`
	TaskID          string `json:"task_id"`
	TaskDescription string `json:"task_description"`
	ExitCode        *int   `json:"exit_code"`
	Message         string `json:"message"`
}

// Environment variables exported to the notification hook.
const (
	EnvEvent           = "TRUDGER_NOTIFY_EVENT"
	EnvDurationMS      = "TRUDGER_NOTIFY_DURATION_MS"
	EnvFolder          = "TRUDGER_NOTIFY_FOLDER"
	EnvExitCode        = "TRUDGER_NOTIFY_EXIT_CODE"
	EnvTaskID          = "TRUDGER_NOTIFY_TASK_ID"
	EnvTaskDescription = "TRUDGER_NOTIFY_TASK_DESCRIPTION"
	EnvPayloadPath     = "TRUDGER_NOTIFY_PAYLOAD_PATH"
)

func (p Payload) env(payloadPath string) []string {
	env := []string{
		EnvEvent + "=" + string(p.Event),
		EnvDurationMS + "=" + strconv.FormatInt(p.DurationMS, 10),
		EnvFolder + "=" + p.Folder,
		EnvTaskID + "=" + p.TaskID,
		EnvTaskDescription + "=" + p.TaskDescription,
	}
	if p.ExitCode != nil {
		env = append(env, EnvExitCode+"="+strconv.Itoa(*p.ExitCode))
	}
	if payloadPath != "" {
		env = append(env, EnvPayloadPath+"="+payloadPath)
	}
	return env
}

// writePayloadFile stores payload in a temp file; the caller removes it.
func writePayloadFile(payload []byte) (string, error) {
	file, err := os.CreateTemp("", "trudger-notify-*.json")
	if err != nil {
		return "", fmt.Errorf("create payload file: %w", err)
	}
	if _, err := file.Write(payload); err != nil {
		_ = file.Close()
		_ = os.Remove(file.Name())
		return "", fmt.Errorf("write payload file: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(file.Name())
		return "", fmt.Errorf("close payload file: %w", err)
	}
	return file.Name(), nil
}

func marshalPayload(p Payload) ([]byte, error) {
	return json.Marshal(p)
}

// Summary returns the first non-blank line of a task show text, trimmed.
func Summary(taskShow string) string {
	for _, line := range strings.Split(taskShow, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
