package id

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

func RequestID() string { return "req-" + uuid.New().String()[:13] }

func ChatCompletionID() string { return fmt.Sprintf("chatcmpl-%s", uuid.New().String()[:8]) }

func MessageID() string {
	return "msg_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}
