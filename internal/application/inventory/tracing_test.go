package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jhoicas/Inventario-medico/internal/domain/entity"
)

func TestApplyMovement_RegistraSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	f := newFixture(t)
	item := f.newItem(t, "TRAZA", 0, 3)
	_, err := f.engine.ApplyMovement(context.Background(), movement(item.ID, entity.MovementOutboundDispense, 9, ""))
	require.Error(t, err)

	var names []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	assert.Contains(t, names, "inventory.apply_movement")
	last := recorder.Ended()[len(recorder.Ended())-1]
	assert.Equal(t, "inventory.apply_movement", last.Name())
	assert.Equal(t, "Error", last.Status().Code.String())
}
