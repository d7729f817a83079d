package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewWritesJSONLines(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	log, err := New(dir, "debug")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	log.WithFields(logrus.Fields{"component": "store"}).Info("draft saved")
	if err := log.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "fieldaudit.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := strings.TrimSpace(string(data))
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not json: %q", line)
	}
	if entry["component"] != "store" || entry["msg"] != "draft saved" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	if got := parseLevel("chatty"); got != logrus.InfoLevel {
		t.Fatalf("parseLevel = %v, want info", got)
	}
	if got := parseLevel("warn"); got != logrus.WarnLevel {
		t.Fatalf("parseLevel = %v, want warn", got)
	}
}
