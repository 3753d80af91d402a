package api

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/solatis/querykeeper/internal/core/db"
	"go.uber.org/zap"
)

// auditRecord is one line of the daily JSONL audit file.
type auditRecord struct {
	ReceivedAt string          `json:"received_at"`
	DocumentID string          `json:"document_id"`
	KeyID      string          `json:"key_id,omitempty"`
	RuleCount  int             `json:"rule_count"`
	Document   json.RawMessage `json:"document"`
}

// auditFile returns the audit file for t's UTC day.
func (s *Service) auditFile(t time.Time) string {
	return filepath.Join(s.auditDir, t.UTC().Format("2006-01-02.jsonl"))
}

// appendAudit writes record to the daily audit file. Best-effort: the
// database is authoritative, failures are logged and otherwise ignored.
func (s *Service) appendAudit(record db.DocumentRecord, keyID string) {
	now := time.Now().UTC()
	filename := s.auditFile(now)

	mu := s.getJSONLMutex(filename)
	mu.Lock()
	defer mu.Unlock()

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		s.logger.Warn("failed to open audit file", zap.String("file", filename), zap.Error(err))
		return
	}
	defer f.Close()

	err = json.NewEncoder(f).Encode(auditRecord{
		ReceivedAt: now.Format(time.RFC3339Nano),
		DocumentID: string(record.DocumentID),
		KeyID:      keyID,
		RuleCount:  record.RuleCount,
		Document:   json.RawMessage(record.Document),
	})
	if err != nil {
		s.logger.Warn("failed to write audit record", zap.String("file", filename), zap.Error(err))
	}
}
