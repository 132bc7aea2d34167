package service_test

import (
	"context"
	"testing"

	"datablocks/internal/service"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─────────────────────────────────────────────────────────────
// Emitter tests
// ─────────────────────────────────────────────────────────────

func TestMockEmitter_RecordsEvents(t *testing.T) {
	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, service.EventBlockCreated, map[string]string{"blockId": "b1"})
	m.Emit(ctx, service.EventAliasUpdated, nil)
	m.Emit(ctx, service.EventBlockCreated, nil)

	require.Len(t, m.Events, 3)
	assert.Equal(t, service.EventBlockCreated, m.Events[0].Event)
	assert.Len(t, m.Named(service.EventBlockCreated), 2)
}

func TestLogEmitter_WritesEntry(t *testing.T) {
	logger, hook := test.NewNullLogger()
	service.LogEmitter{Logger: logger}.Emit(context.Background(), service.EventBlockRealized, "b1")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, service.EventBlockRealized, entry.Data["event"])
}
