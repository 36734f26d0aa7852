package circulation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func sumOf(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is %T", name, m.Data)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestLoanOperationsAreTracedAndCounted(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)))
	reader := sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))

	ctx := context.Background()
	f := newFixture()
	f.registerBook(t, 1, "Dune")
	f.registerBook(t, 2, "Hyperion")

	_, err := f.loans.CreateLoan(ctx, 1, ana)
	require.NoError(t, err)
	_, err = f.loans.CreateLoan(ctx, 2, ana)
	require.NoError(t, err)
	_, err = f.loans.ReturnLoan(ctx, 1)
	require.NoError(t, err)
	_, err = f.loans.DeleteLoan(ctx, 2)
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	assert.Equal(t, int64(2), sumOf(t, rm, "circulation.loans.created"))
	assert.Equal(t, int64(1), sumOf(t, rm, "circulation.loans.returned"))
	assert.Equal(t, int64(1), sumOf(t, rm, "circulation.loans.deleted"))
	assert.Equal(t, int64(0), sumOf(t, rm, "circulation.loans.active"))

	var names []string
	for _, span := range spans.Ended() {
		names = append(names, span.Name())
	}
	assert.Contains(t, names, "circulation.create_loan")
	assert.Contains(t, names, "circulation.return_loan")
	assert.Contains(t, names, "circulation.delete_loan")
	assert.Contains(t, names, "catalog.checkout")
}
