package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZapLogger_GetLogs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l := NewFileLogger(path)

	l.Info(ModuleBilling, "Credits debited", map[string]interface{}{"tx_id": "tx-1", "cost": 2})
	l.Warn(ModuleBilling, "Insufficient credits", map[string]interface{}{"tx_id": "tx-2"})
	l.Error(ModuleDispatch, "Backend failed", map[string]interface{}{"tx_id": "tx-1", "error": "500"})
	l.Debug(ModuleDispatch, "below file level", nil)
	require.NoError(t, l.Sync())

	cases := []struct {
		name     string
		filter   LogFilter
		messages []string
	}{
		{name: "all newest first", messages: []string{"Backend failed", "Insufficient credits", "Credits debited"}},
		{name: "by transaction", filter: LogFilter{TxID: "tx-1"}, messages: []string{"Backend failed", "Credits debited"}},
		{name: "by module", filter: LogFilter{Module: ModuleBilling}, messages: []string{"Insufficient credits", "Credits debited"}},
		{name: "by level", filter: LogFilter{Level: "ERROR"}, messages: []string{"Backend failed"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entries, err := l.GetLogs(tc.filter, 10, 0)
			require.NoError(t, err)
			var messages []string
			for _, e := range entries {
				messages = append(messages, e.Message)
			}
			assert.Equal(t, tc.messages, messages)
		})
	}

	page, err := l.GetLogs(LogFilter{}, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Insufficient credits", page[0].Message)

	found, err := l.GetLogById(page[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "tx-2", found.TxID)

	_, err = l.GetLogById("missing")
	assert.Error(t, err)
}

func TestZapLogger_GetLogsMissingFile(t *testing.T) {
	l := NewFileLogger(filepath.Join(t.TempDir(), "never-written.log"))
	entries, err := l.GetLogs(LogFilter{}, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
