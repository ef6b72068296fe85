package audit_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surenss861/riskmate-sub004/pkg/audit"
	"github.com/surenss861/riskmate-sub004/pkg/auth"
)

func parseLine(t *testing.T, line string) audit.Event {
	t.Helper()
	require.True(t, strings.HasPrefix(line, "AUDIT: "))
	var event audit.Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "AUDIT: ")), &event))
	return event
}

func TestLogger_Record_WritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := audit.NewLoggerWithWriter(&buf)

	err := logger.Record(context.Background(), audit.EventRunSealed, "seal", "run:run-1", nil)
	require.NoError(t, err)

	event := parseLine(t, strings.TrimSpace(buf.String()))
	assert.Equal(t, audit.EventRunSealed, event.Type)
	assert.Equal(t, "seal", event.Action)
	assert.Equal(t, "run:run-1", event.Resource)
	assert.Equal(t, "system", event.TenantID)
	assert.Equal(t, "system", event.ActorID)
	assert.Len(t, event.ID, 36)
}

func TestLogger_Record_PrincipalAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := audit.NewLoggerWithWriter(&buf)

	ctx := auth.WithPrincipal(context.Background(), &auth.BasePrincipal{ID: "user-1", TenantID: "tenant-a"})
	ctx = auth.WithRequestID(ctx, "req-7")

	meta := map[string]any{"signature_id": "sig-1", "reason": "tampered"}
	require.NoError(t, logger.Record(ctx, audit.EventSignatureTampered, "verify", "signature:sig-1", meta))

	event := parseLine(t, strings.TrimSpace(buf.String()))
	assert.Equal(t, "tenant-a", event.TenantID)
	assert.Equal(t, "user-1", event.ActorID)
	assert.Equal(t, "req-7", event.RequestID)
	assert.Equal(t, "tampered", event.Metadata["reason"])
}

func TestLogger_ConcurrentLinesStayIntact(t *testing.T) {
	var buf bytes.Buffer
	logger := audit.NewLoggerWithWriter(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = logger.Record(context.Background(), audit.EventSignatureVerified, "verify", "signature:x", nil)
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 20)
	for _, line := range lines {
		parseLine(t, line)
	}
}

func TestMemoryLogger(t *testing.T) {
	m := audit.NewMemoryLogger()
	ctx := context.Background()
	require.NoError(t, m.Record(ctx, audit.EventSignatureCreated, "sign", "signature:a", nil))
	require.NoError(t, m.Record(ctx, audit.EventPolicyDenied, "sign", "run:r", nil))
	require.NoError(t, m.Record(ctx, audit.EventSignatureCreated, "sign", "signature:b", nil))

	assert.Len(t, m.Events(), 3)
	created := m.OfType(audit.EventSignatureCreated)
	require.Len(t, created, 2)
	assert.Equal(t, "signature:b", created[1].Resource)
}

func TestNop(t *testing.T) {
	var l audit.Logger = audit.Nop{}
	assert.NoError(t, l.Record(context.Background(), audit.EventRunSealed, "seal", "run:x", nil))
}
